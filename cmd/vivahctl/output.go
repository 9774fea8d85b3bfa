package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/matheus3301/vivah/internal/chat"
)

func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func printMessages(w io.Writer, msgs []chat.Message, viewer string) {
	for _, m := range msgs {
		who := m.SenderID
		if m.SenderID == viewer {
			who = "you"
		}
		mark := ""
		if m.Status == chat.Pending {
			mark = " (pending)"
		}
		_, _ = fmt.Fprintf(w, "%s  %-12s %s%s\n", formatTime(m.CreatedAt), who, m.Content, mark)
	}
}
