package backend

import (
	"time"

	"github.com/matheus3301/vivah/internal/chat"
	"github.com/matheus3301/vivah/internal/store"
)

func toMessage(m *store.Message) chat.Message {
	return chat.Message{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Content:        m.Content,
		CreatedAt:      time.UnixMilli(m.CreatedAt).UTC(),
		Status:         chat.Confirmed,
		Read:           m.IsRead,
		ClientToken:    m.ClientToken,
	}
}

func toConnection(c *store.Connection) *chat.Connection {
	if c == nil {
		return nil
	}
	return &chat.Connection{
		ID:         c.ID,
		SenderID:   c.SenderID,
		ReceiverID: c.ReceiverID,
		State:      chat.ConnectionState(c.Status),
		CreatedAt:  time.UnixMilli(c.CreatedAt).UTC(),
	}
}

func toProfile(p *store.Profile) *chat.Profile {
	if p == nil {
		return nil
	}
	return &chat.Profile{ID: p.ID, FirstName: p.FirstName, LastName: p.LastName, PhotoURL: p.PhotoURL}
}

func toConversation(c store.Conversation) chat.Conversation {
	out := chat.Conversation{
		ID:                 c.ID,
		ConnectionID:       c.ConnectionID,
		LastMessagePreview: c.LastMessagePreview,
	}
	if c.LastMessageAt != 0 {
		out.LastMessageAt = time.UnixMilli(c.LastMessageAt).UTC()
	}
	return out
}

func toDetail(v *store.ConversationView) chat.ConversationDetail {
	return chat.ConversationDetail{
		Conversation: toConversation(v.Conversation),
		Connection:   toConnection(v.Connection),
		Sender:       toProfile(v.Sender),
		Receiver:     toProfile(v.Receiver),
		UnreadCount:  v.UnreadCount,
	}
}

func toConnectionDetails(views []store.ConnectionView) []chat.ConnectionDetail {
	out := make([]chat.ConnectionDetail, 0, len(views))
	for i := range views {
		v := &views[i]
		out = append(out, chat.ConnectionDetail{
			Connection:     *toConnection(&v.Connection),
			Sender:         toProfile(v.Sender),
			Receiver:       toProfile(v.Receiver),
			ConversationID: v.ConversationID,
		})
	}
	return out
}
