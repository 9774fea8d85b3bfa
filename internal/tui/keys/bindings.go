package keys

import (
	"sort"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/vivah/internal/tui/ui"
)

// Action represents a keybinding action.
type Action struct {
	Key         tcell.Key
	Rune        rune
	Label       string // shown in the menu, e.g. "Esc"
	Description string
	Handler     func()
	Visible     bool
}

// Matches returns true if the event matches this action.
func (a *Action) Matches(ev *tcell.EventKey) bool {
	return a.matches(ev.Key(), ev.Rune())
}

func (a *Action) matches(key tcell.Key, r rune) bool {
	if a.Key != tcell.KeyRune {
		return key == a.Key
	}
	return key == tcell.KeyRune && r == a.Rune
}

func (a *Action) label() string {
	if a.Label != "" {
		return a.Label
	}
	if a.Key == tcell.KeyRune {
		return string(a.Rune)
	}
	return tcell.KeyNames[a.Key]
}

// Registry holds keybindings organized by scope.
type Registry struct {
	Global map[string]*Action
	Views  map[string]map[string]*Action
}

// NewRegistry creates a new keybinding registry.
func NewRegistry() *Registry {
	return &Registry{
		Global: make(map[string]*Action),
		Views:  make(map[string]map[string]*Action),
	}
}

// AddGlobal registers a global keybinding.
func (r *Registry) AddGlobal(name string, action *Action) {
	r.Global[name] = action
}

// AddView registers a view-specific keybinding.
func (r *Registry) AddView(view, name string, action *Action) {
	if r.Views[view] == nil {
		r.Views[view] = make(map[string]*Action)
	}
	r.Views[view][name] = action
}

// Hints returns the visible bindings for view followed by the global ones,
// each group sorted by label.
func (r *Registry) Hints(view string) []ui.MenuHint {
	hints := collect(r.Views[view])
	return append(hints, collect(r.Global)...)
}

func collect(actions map[string]*Action) []ui.MenuHint {
	var hints []ui.MenuHint
	for _, a := range actions {
		if a.Visible {
			hints = append(hints, ui.MenuHint{Key: a.label(), Description: a.Description})
		}
	}
	sort.Slice(hints, func(i, j int) bool { return hints[i].Key < hints[j].Key })
	return hints
}

// HandleEvent dispatches a key event to matching action in the given view.
// Returns true if a handler matched.
func (r *Registry) HandleEvent(view string, ev *tcell.EventKey) bool {
	return r.handle(view, ev.Key(), ev.Rune())
}

func (r *Registry) handle(view string, key tcell.Key, ch rune) bool {
	// View bindings shadow global ones.
	if viewBindings, ok := r.Views[view]; ok {
		for _, a := range viewBindings {
			if a.matches(key, ch) {
				a.Handler()
				return true
			}
		}
	}
	for _, a := range r.Global {
		if a.matches(key, ch) {
			a.Handler()
			return true
		}
	}
	return false
}
