package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/vivah/internal/chat"
	"github.com/matheus3301/vivah/internal/tui/ui"
	"github.com/rivo/tview"
)

// ConversationScreen shows one conversation: counterpart header, messages
// and a composer. The conversation is live only while the screen is on top
// of the page stack.
type ConversationScreen struct {
	*tview.Flex
	theme    *ui.Theme
	header   *tview.TextView
	messages *tview.TextView
	composer *tview.InputField

	viewer  string
	name    string
	onFocus func()
	onBlur  func()
	onSend  func(text string)
}

// NewConversationScreen creates the conversation screen for viewer.
func NewConversationScreen(theme *ui.Theme, viewer string) *ConversationScreen {
	header := tview.NewTextView().SetDynamicColors(true)
	header.SetBackgroundColor(theme.BgColor)
	header.SetBorderPadding(0, 0, 1, 1)

	messages := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWordWrap(true)
	messages.SetBorder(true)
	messages.SetBorderColor(theme.BorderColor)
	messages.SetBackgroundColor(theme.BgColor)
	messages.SetTextColor(theme.FgColor)
	messages.SetTitleColor(theme.TitleColor)

	composer := tview.NewInputField().
		SetLabel(" > ").
		SetFieldWidth(0)
	composer.SetBorder(true)
	composer.SetBorderColor(theme.BorderColor)
	composer.SetBackgroundColor(theme.BgColor)
	composer.SetFieldBackgroundColor(theme.BgColor)
	composer.SetFieldTextColor(theme.FgColor)
	composer.SetLabelColor(theme.MenuKeyColor)
	composer.SetTitle(" Compose (i to focus) ")
	composer.SetTitleColor(theme.TitleColor)

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(header, 1, 0, false).
		AddItem(messages, 0, 1, true).
		AddItem(composer, 3, 0, false)

	cs := &ConversationScreen{
		Flex:     flex,
		theme:    theme,
		header:   header,
		messages: messages,
		composer: composer,
		viewer:   viewer,
	}

	composer.SetDoneFunc(func(key tcell.Key) {
		if key != tcell.KeyEnter || cs.onSend == nil {
			return
		}
		if text := composer.GetText(); strings.TrimSpace(text) != "" {
			cs.onSend(text)
			composer.SetText("")
		}
	})
	return cs
}

// Name implements Component.
func (cs *ConversationScreen) Name() string {
	if cs.name != "" {
		return cs.name
	}
	return "Conversation"
}

// Start implements Component.
func (cs *ConversationScreen) Start() {
	if cs.onFocus != nil {
		cs.onFocus()
	}
}

// Stop implements Component.
func (cs *ConversationScreen) Stop() {
	if cs.onBlur != nil {
		cs.onBlur()
	}
}

// SetLifecycle sets the callbacks run when the screen gains and loses focus.
func (cs *ConversationScreen) SetLifecycle(onFocus, onBlur func()) {
	cs.onFocus, cs.onBlur = onFocus, onBlur
}

// SetOnSend sets the callback run with composer text on Enter.
func (cs *ConversationScreen) SetOnSend(fn func(text string)) {
	cs.onSend = fn
}

// SetHeader renders the counterpart and the realtime feed status.
func (cs *ConversationScreen) SetHeader(h chat.Header, feed chat.SubscriptionStatus) {
	cs.name = h.Name
	cs.messages.SetTitle(fmt.Sprintf(" %s ", tview.Escape(sanitizeForTerminal(h.Name))))

	color := cs.theme.MutedColor
	switch feed {
	case chat.StatusSubscribed:
		color = cs.theme.OwnColor
	case chat.StatusChannelError, chat.StatusTimedOut:
		color = cs.theme.FlashWarnColor
	}
	if feed == "" {
		feed = "CONNECTING"
	}
	cs.header.Clear()
	_, _ = fmt.Fprintf(cs.header, "[%s::b]%s[-:-:-]  [%s]%s[-]  [%s]%s[-]",
		ui.Tag(cs.theme.TitleColor), tview.Escape(sanitizeForTerminal(h.Name)),
		ui.Tag(cs.theme.MutedColor), tview.Escape(h.PhotoURL),
		ui.Tag(color), feed)
}

// Update renders msgs, oldest first. failed reports pending messages whose
// send failed.
func (cs *ConversationScreen) Update(msgs []chat.Message, failed func(id string) bool) {
	cs.messages.Clear()
	_, _ = fmt.Fprint(cs.messages, FormatMessages(msgs, cs.viewer, cs.name, failed, cs.theme, time.Now()))
	cs.messages.ScrollToEnd()
}

// Messages returns the messages text view (for focus management).
func (cs *ConversationScreen) Messages() *tview.TextView {
	return cs.messages
}

// Composer returns the composer input field (for focus management).
func (cs *ConversationScreen) Composer() *tview.InputField {
	return cs.composer
}

// FormatMessages renders msgs as tview markup. Pending messages are marked
// with "…" and failed ones with "!"; the counterpart's unread messages get a
// bullet.
func FormatMessages(msgs []chat.Message, viewer, counterpart string, failed func(id string) bool, theme *ui.Theme, now time.Time) string {
	var b strings.Builder
	for _, m := range msgs {
		sender, color := counterpart, theme.PeerColor
		if m.SenderID == viewer {
			sender, color = "You", theme.OwnColor
		}
		if sender == "" {
			sender = m.SenderID
		}

		mark := ""
		switch {
		case m.Status == chat.Pending && failed != nil && failed(m.ID):
			mark = fmt.Sprintf(" [%s]! not sent, r to retry[-]", ui.Tag(theme.FlashErrColor))
		case m.Status == chat.Pending:
			mark = fmt.Sprintf(" [%s]…[-]", ui.Tag(theme.MutedColor))
		case m.SenderID != viewer && !m.Read:
			mark = fmt.Sprintf(" [%s]•[-]", ui.Tag(theme.CounterColor))
		}

		fmt.Fprintf(&b, "[%s::b]%s[-:-:-] [%s]%s[-]%s\n%s\n\n",
			ui.Tag(color), tview.Escape(sanitizeForTerminal(sender)),
			ui.Tag(theme.MutedColor), formatTimestamp(m.CreatedAt, now),
			mark,
			tview.Escape(sanitizeForTerminal(m.Content)))
	}
	return b.String()
}
