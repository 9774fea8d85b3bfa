package views

import (
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/vivah/internal/chat"
	"github.com/matheus3301/vivah/internal/tui/ui"
	"github.com/rivo/tview"
)

// RequestList shows the connection requests waiting for the viewer.
type RequestList struct {
	*tview.Table
	theme       *ui.Theme
	viewer      string
	placeholder string
	rows        []chat.ConnectionDetail
	onStart     func()
}

// NewRequestList creates the pending request table.
func NewRequestList(theme *ui.Theme, viewer, placeholder string) *RequestList {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetFixed(1, 0)
	table.SetBorder(true)
	table.SetBorderColor(theme.BorderColor)
	table.SetBackgroundColor(theme.BgColor)
	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))
	table.SetTitleColor(theme.TitleColor)

	rl := &RequestList{Table: table, theme: theme, viewer: viewer, placeholder: placeholder}
	rl.render()
	return rl
}

// SetOnStart sets the function run each time the list becomes visible.
func (rl *RequestList) SetOnStart(fn func()) { rl.onStart = fn }

// Name implements Component.
func (rl *RequestList) Name() string { return "Requests" }

// Start implements Component.
func (rl *RequestList) Start() {
	if rl.onStart != nil {
		rl.onStart()
	}
}

// Stop implements Component.
func (rl *RequestList) Stop() {}

// Update replaces the rows.
func (rl *RequestList) Update(rows []chat.ConnectionDetail) {
	row, _ := rl.GetSelection()
	rl.rows = rows
	rl.render()
	if row > len(rl.rows) {
		row = len(rl.rows)
	}
	if row < 1 && len(rl.rows) > 0 {
		row = 1
	}
	rl.Select(row, 0)
}

// Selected returns the highlighted request's connection id.
func (rl *RequestList) Selected() string {
	row, _ := rl.GetSelection()
	if row < 1 || row > len(rl.rows) {
		return ""
	}
	return rl.rows[row-1].Connection.ID
}

func (rl *RequestList) render() {
	rl.Clear()
	for col, h := range []string{" FROM", " SENT", " CONNECTION"} {
		rl.SetCell(0, col, tview.NewTableCell(h).
			SetSelectable(false).
			SetTextColor(rl.theme.TableHeaderFg).
			SetAttributes(tcell.AttrBold).
			SetExpansion(1))
	}

	now := time.Now()
	for i := range rl.rows {
		d := &rl.rows[i]
		name := d.Counterpart(rl.viewer).DisplayName()
		if name == "" {
			name = rl.placeholder
		}
		rl.SetCell(i+1, 0, tview.NewTableCell(" "+tview.Escape(sanitizeForTerminal(name))).SetExpansion(1).SetTextColor(rl.theme.FgColor))
		rl.SetCell(i+1, 1, tview.NewTableCell(" "+formatTimestamp(d.Connection.CreatedAt, now)).SetExpansion(1).SetTextColor(rl.theme.MutedColor))
		rl.SetCell(i+1, 2, tview.NewTableCell(" "+d.Connection.ID).SetExpansion(1).SetTextColor(rl.theme.MutedColor))
	}
	rl.SetTitle(fmt.Sprintf(" Requests (%d) ", len(rl.rows)))
}
