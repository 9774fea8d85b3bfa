package ui

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"
)

// Crumbs is a breadcrumb bar showing the page stack.
type Crumbs struct {
	*tview.TextView
	theme *Theme
	label func(page string) string
}

// NewCrumbs creates a new breadcrumb bar.
func NewCrumbs(theme *Theme) *Crumbs {
	tv := tview.NewTextView().SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)
	return &Crumbs{TextView: tv, theme: theme}
}

// SetLabel sets the function naming each page in the trail. An empty
// label falls back to the page id.
func (c *Crumbs) SetLabel(fn func(page string) string) {
	c.label = fn
}

// Update renders the trail; the last page is the active one.
func (c *Crumbs) Update(pages []string) {
	c.Clear()
	_, _ = fmt.Fprint(c, c.trail(pages))
}

func (c *Crumbs) trail(pages []string) string {
	parts := make([]string, 0, len(pages))
	for i, page := range pages {
		name := page
		if c.label != nil {
			if l := c.label(page); l != "" {
				name = l
			}
		}
		fg, bg, attr := c.theme.CrumbInactiveFg, c.theme.CrumbInactiveBg, ""
		if i == len(pages)-1 {
			fg, bg, attr = c.theme.CrumbActiveFg, c.theme.CrumbActiveBg, "b"
		}
		parts = append(parts, fmt.Sprintf("[%s:%s:%s] %s [-:-:-]", Tag(fg), Tag(bg), attr, tview.Escape(name)))
	}
	return strings.Join(parts, " ")
}
