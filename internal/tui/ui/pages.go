package ui

import "github.com/rivo/tview"

// Pages is a stack-based page manager wrapping tview.Pages. Only the top of
// the stack is started; every other registered component is stopped.
type Pages struct {
	*tview.Pages
	components map[string]Component
	stack      []string
	onChange   func(stack []string)
}

// NewPages creates a new stack-based page manager.
func NewPages() *Pages {
	return &Pages{
		Pages:      tview.NewPages(),
		components: make(map[string]Component),
	}
}

// Register adds a hidden page under id.
func (p *Pages) Register(id string, c Component) {
	p.components[id] = c
	p.AddPage(id, c, true, false)
}

// SetOnChange sets a callback that fires when the stack changes.
func (p *Pages) SetOnChange(fn func(stack []string)) {
	p.onChange = fn
}

// Push stops the current page, then shows and starts id.
func (p *Pages) Push(id string) {
	if top := p.Current(); top != "" {
		p.components[top].Stop()
		p.HidePage(top)
	}
	p.stack = append(p.stack, id)
	p.show(id)
}

// Pop stops and removes the top page and restarts the one below it.
// Returns the popped id, or empty if at most one page is stacked.
func (p *Pages) Pop() string {
	if len(p.stack) < 2 {
		return ""
	}
	top := p.stack[len(p.stack)-1]
	p.components[top].Stop()
	p.HidePage(top)
	p.stack = p.stack[:len(p.stack)-1]
	p.show(p.stack[len(p.stack)-1])
	return top
}

// Reset stops everything and leaves only id on the stack.
func (p *Pages) Reset(id string) {
	if top := p.Current(); top != "" {
		p.components[top].Stop()
	}
	for _, n := range p.stack {
		p.HidePage(n)
	}
	p.stack = []string{id}
	p.show(id)
}

// StopAll stops the current page without changing the stack.
func (p *Pages) StopAll() {
	if top := p.Current(); top != "" {
		p.components[top].Stop()
	}
}

// Current returns the id of the top page.
func (p *Pages) Current() string {
	if len(p.stack) == 0 {
		return ""
	}
	return p.stack[len(p.stack)-1]
}

// Component returns the top component, or nil.
func (p *Pages) Component() Component {
	return p.components[p.Current()]
}

// Names returns the display names of the stacked components, bottom first.
func (p *Pages) Names() []string {
	names := make([]string, 0, len(p.stack))
	for _, id := range p.stack {
		names = append(names, p.components[id].Name())
	}
	return names
}

func (p *Pages) show(id string) {
	p.ShowPage(id)
	p.SendToFront(id)
	p.components[id].Start()
	if p.onChange != nil {
		p.onChange(p.Names())
	}
}
