package ui

import (
	"sort"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// PromptMode indicates the type of prompt.
type PromptMode int

const (
	PromptCommand PromptMode = iota
	PromptFilter
)

// Prompt is the command/filter input bar. In command mode it completes
// command names.
type Prompt struct {
	*tview.InputField
	mode     PromptMode
	commands []string
	onSubmit func(mode PromptMode, text string)
	onCancel func()
}

// NewPrompt creates a new prompt input bar.
func NewPrompt(theme *Theme) *Prompt {
	input := tview.NewInputField()
	input.SetBorder(true)
	input.SetBorderColor(theme.PromptColor)
	input.SetBackgroundColor(theme.BgColor)
	input.SetFieldBackgroundColor(theme.BgColor)
	input.SetFieldTextColor(theme.FgColor)
	input.SetLabelColor(theme.MenuKeyColor)
	input.SetAutocompleteStyles(theme.BgColor,
		tcell.StyleDefault.Foreground(theme.FgColor).Background(theme.BgColor),
		tcell.StyleDefault.Foreground(theme.TableCursorFg).Background(theme.TableCursorBg))

	p := &Prompt{InputField: input}
	input.SetAutocompleteFunc(p.complete)
	input.SetDoneFunc(func(key tcell.Key) {
		text := p.GetText()
		p.SetText("")
		switch key {
		case tcell.KeyEnter:
			if p.onSubmit != nil {
				p.onSubmit(p.mode, text)
			}
		case tcell.KeyEscape:
			if p.onCancel != nil {
				p.onCancel()
			}
		}
	})
	return p
}

// SetCommands sets the names offered while typing a command.
func (p *Prompt) SetCommands(names []string) {
	p.commands = append([]string(nil), names...)
	sort.Strings(p.commands)
}

// SetOnSubmit sets the callback for Enter. An empty filter submission
// clears the filter.
func (p *Prompt) SetOnSubmit(fn func(mode PromptMode, text string)) {
	p.onSubmit = fn
}

// SetOnCancel sets the callback for Esc.
func (p *Prompt) SetOnCancel(fn func()) {
	p.onCancel = fn
}

// Activate prepares the prompt for mode with text already entered.
func (p *Prompt) Activate(mode PromptMode, text string) {
	p.mode = mode
	p.SetText(text)
	switch mode {
	case PromptCommand:
		p.SetLabel(":")
		p.SetTitle(" Command ")
	case PromptFilter:
		p.SetLabel("/")
		p.SetTitle(" Filter ")
	}
}

// complete offers command names matching the typed prefix. Arguments are
// never completed.
func (p *Prompt) complete(current string) []string {
	if p.mode != PromptCommand || current == "" || strings.Contains(current, " ") {
		return nil
	}
	var out []string
	for _, name := range p.commands {
		if strings.HasPrefix(name, strings.ToLower(current)) && name != current {
			out = append(out, name)
		}
	}
	return out
}
