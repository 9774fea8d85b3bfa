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

// ConversationList is the viewer's inbox.
type ConversationList struct {
	*tview.Table
	theme       *ui.Theme
	viewer      string
	placeholder string
	rows        []chat.ConversationDetail
	visible     []string // conversation ids in display order
	filter      string
}

// NewConversationList creates a new conversation list table.
// placeholder names counterparts whose profile is unknown.
func NewConversationList(theme *ui.Theme, viewer, placeholder string) *ConversationList {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false).
		SetFixed(1, 0)
	table.SetBorder(true)
	table.SetBorderColor(theme.BorderColor)
	table.SetBackgroundColor(theme.BgColor)
	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))
	table.SetTitleColor(theme.TitleColor)

	cl := &ConversationList{Table: table, theme: theme, viewer: viewer, placeholder: placeholder}
	cl.render()
	return cl
}

// Name implements Component.
func (cl *ConversationList) Name() string { return "Conversations" }

// Start implements Component.
func (cl *ConversationList) Start() {}

// Stop implements Component.
func (cl *ConversationList) Stop() {}

// Update replaces the rows, keeping the selected conversation if it is
// still listed.
func (cl *ConversationList) Update(rows []chat.ConversationDetail) {
	selected := cl.Selected()
	cl.rows = rows
	cl.render()
	cl.selectID(selected)
}

// SetFilter sets the active filter text. Empty clears it.
func (cl *ConversationList) SetFilter(filter string) {
	cl.filter = strings.TrimSpace(filter)
	cl.render()
}

// Filter returns the active filter text.
func (cl *ConversationList) Filter() string { return cl.filter }

// Selected returns the id of the highlighted conversation.
func (cl *ConversationList) Selected() string {
	row, _ := cl.GetSelection()
	return cl.ByIndex(row)
}

// ByIndex returns the id of the Nth visible conversation (1-based).
func (cl *ConversationList) ByIndex(n int) string {
	if n < 1 || n > len(cl.visible) {
		return ""
	}
	return cl.visible[n-1]
}

// FindByName returns the first conversation whose counterpart name contains
// name, ignoring case and the filter.
func (cl *ConversationList) FindByName(name string) string {
	for _, d := range cl.rows {
		if containsFold(cl.counterpartName(&d), name) {
			return d.Conversation.ID
		}
	}
	return ""
}

func (cl *ConversationList) selectID(id string) {
	for i, v := range cl.visible {
		if v == id {
			cl.Select(i+1, 0)
			return
		}
	}
	if len(cl.visible) > 0 {
		cl.Select(1, 0)
	}
}

func (cl *ConversationList) counterpartName(d *chat.ConversationDetail) string {
	if name := d.Counterpart(cl.viewer).DisplayName(); name != "" {
		return name
	}
	return cl.placeholder
}

func (cl *ConversationList) render() {
	cl.Clear()

	headers := []struct {
		text string
		exp  int
	}{
		{" NAME", 1},
		{" LAST MESSAGE", 2},
		{" TIME", 0},
		{" UNREAD", 0},
	}
	for col, h := range headers {
		cl.SetCell(0, col, tview.NewTableCell(h.text).
			SetSelectable(false).
			SetTextColor(cl.theme.TableHeaderFg).
			SetAttributes(tcell.AttrBold).
			SetExpansion(h.exp))
	}

	cl.visible = cl.visible[:0]
	row := 1
	for i := range cl.rows {
		d := &cl.rows[i]
		name := cl.counterpartName(d)
		preview := d.Conversation.LastMessagePreview
		if cl.filter != "" && !containsFold(name, cl.filter) && !containsFold(preview, cl.filter) {
			continue
		}

		unread := ""
		fg := cl.theme.FgColor
		if d.UnreadCount > 0 {
			unread = fmt.Sprintf("%d", d.UnreadCount)
			fg = cl.theme.CounterColor
		}

		cl.SetCell(row, 0, tview.NewTableCell(" "+tview.Escape(sanitizeForTerminal(name))).SetExpansion(1).SetTextColor(fg))
		cl.SetCell(row, 1, tview.NewTableCell(" "+tview.Escape(sanitizeForTerminal(preview))).SetExpansion(2).SetTextColor(cl.theme.MutedColor))
		cl.SetCell(row, 2, tview.NewTableCell(formatTimestamp(d.Conversation.LastMessageAt, time.Now())).SetAlign(tview.AlignRight).SetTextColor(cl.theme.FgColor))
		cl.SetCell(row, 3, tview.NewTableCell(unread).SetAlign(tview.AlignRight).SetTextColor(cl.theme.CounterColor))
		cl.visible = append(cl.visible, d.Conversation.ID)
		row++
	}

	if cl.filter != "" {
		cl.SetTitle(fmt.Sprintf(" Conversations (%d/%d) filter: %s ", len(cl.visible), len(cl.rows), tview.Escape(cl.filter)))
	} else {
		cl.SetTitle(fmt.Sprintf(" Conversations (%d) ", len(cl.rows)))
	}
}

// formatTimestamp shows the clock for today and the date otherwise. The
// zero time renders empty.
func formatTimestamp(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	t = t.In(now.Location())
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return t.Format("15:04")
	}
	return t.Format("02 Jan")
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
