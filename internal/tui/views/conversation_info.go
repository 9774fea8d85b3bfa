package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/matheus3301/vivah/internal/chat"
	"github.com/matheus3301/vivah/internal/tui/ui"
	"github.com/rivo/tview"
)

// ConversationInfo displays the counterpart profile and the connection
// behind a conversation.
type ConversationInfo struct {
	*tview.TextView
	theme  *ui.Theme
	viewer string
}

// NewConversationInfo creates a new conversation info view.
func NewConversationInfo(theme *ui.Theme, viewer string) *ConversationInfo {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Details ")
	tv.SetTitleColor(theme.TitleColor)

	return &ConversationInfo{TextView: tv, theme: theme, viewer: viewer}
}

// Name implements Component.
func (ci *ConversationInfo) Name() string { return "Details" }

// Start implements Component.
func (ci *ConversationInfo) Start() {}

// Stop implements Component.
func (ci *ConversationInfo) Stop() {}

// Update renders d. A nil detail clears the view.
func (ci *ConversationInfo) Update(d *chat.ConversationDetail) {
	ci.Clear()
	if d == nil {
		return
	}
	_, _ = fmt.Fprint(ci, ci.format(d, time.Now()))
}

func (ci *ConversationInfo) format(d *chat.ConversationDetail, now time.Time) string {
	fg, ct := ui.Tag(ci.theme.FgColor), ui.Tag(ci.theme.CounterColor)
	row := func(label, value string) string {
		if value == "" {
			value = "-"
		}
		return fmt.Sprintf(" [%s::b]%-14s[-:-:-] [%s]%s[-]\n", fg, label+":", ct, tview.Escape(sanitizeForTerminal(value)))
	}

	var b strings.Builder
	b.WriteString("\n")
	p := d.Counterpart(ci.viewer)
	if p != nil {
		b.WriteString(row("Name", p.DisplayName()))
		b.WriteString(row("Profile", p.ID))
		b.WriteString(row("Photo", p.PhotoURL))
	} else {
		b.WriteString(row("Name", ""))
	}
	if c := d.Connection; c != nil {
		direction := "received"
		if c.SenderID == ci.viewer {
			direction = "sent"
		}
		b.WriteString(row("Connection", c.ID))
		b.WriteString(row("State", string(c.State)))
		b.WriteString(row("Request", direction))
		b.WriteString(row("Since", formatTimestamp(c.CreatedAt, now)))
	}
	b.WriteString(row("Conversation", d.Conversation.ID))
	b.WriteString(row("Unread", fmt.Sprintf("%d", d.UnreadCount)))
	b.WriteString(row("Last Active", formatTimestamp(d.Conversation.LastMessageAt, now)))
	b.WriteString(row("Last Message", d.Conversation.LastMessagePreview))
	return b.String()
}
