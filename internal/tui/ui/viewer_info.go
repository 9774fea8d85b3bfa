package ui

import (
	"fmt"

	"github.com/rivo/tview"
)

// ViewerData is what the header shows about the acting profile.
type ViewerData struct {
	Viewer        string
	Conversations int
	Unread        int
	Feed          string // subscription status of the open conversation
}

// ViewerInfo displays the acting profile in the header.
type ViewerInfo struct {
	*tview.TextView
	theme *Theme
}

// NewViewerInfo creates a new viewer info panel.
func NewViewerInfo(theme *Theme) *ViewerInfo {
	tv := tview.NewTextView().SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 1, 1)
	return &ViewerInfo{TextView: tv, theme: theme}
}

// Update renders data.
func (vi *ViewerInfo) Update(data ViewerData) {
	vi.Clear()
	fg, ct := Tag(vi.theme.FgColor), Tag(vi.theme.CounterColor)
	feed := data.Feed
	if feed == "" {
		feed = "-"
	}
	_, _ = fmt.Fprintf(vi,
		"[%s::b]Viewer:[-:-:-] [%s]%s[-]  [%s::b]Chats:[-:-:-] [%s]%d[-]  [%s::b]Unread:[-:-:-] [%s]%d[-]  [%s::b]Feed:[-:-:-] [%s]%s[-]",
		fg, ct, tview.Escape(data.Viewer),
		fg, ct, data.Conversations,
		fg, ct, data.Unread,
		fg, ct, feed,
	)
}
