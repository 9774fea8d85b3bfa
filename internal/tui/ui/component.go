package ui

import "github.com/rivo/tview"

// MenuHint describes a keyboard shortcut for display in the menu bar.
type MenuHint struct {
	Key         string
	Description string
}

// Component is a page managed by Pages. Start runs when the page gains
// focus and Stop when it loses it, including when another page is pushed
// on top.
type Component interface {
	tview.Primitive
	Name() string
	Start()
	Stop()
}
