package rpc

import (
	"time"

	"github.com/matheus3301/vivah/internal/chat"
	"google.golang.org/protobuf/types/known/structpb"
)

// Wire field names.
const (
	fConversationID = "conversation_id"
	fViewerID       = "viewer_id"
	fLimit          = "limit"
	fMessages       = "messages"
	fMessage        = "message"
	fConversations  = "conversations"
	fConversation   = "conversation"
	fConnection     = "connection"
	fConnectionID   = "connection_id"
	fProfile        = "profile"
	fStatus         = "status"
	fState          = "state"
	fSince          = "since"
	fLastMessageAt  = "last_message_at"
	fPreview        = "preview"
	fSenderID       = "sender_id"
	fReceiverID     = "receiver_id"
	fConnections    = "connections"
)

type fields map[string]*structpb.Value

func newStruct(f fields) *structpb.Struct {
	return &structpb.Struct{Fields: f}
}

func str(s *structpb.Struct, key string) string {
	return s.GetFields()[key].GetStringValue()
}

func num(s *structpb.Struct, key string) int {
	return int(s.GetFields()[key].GetNumberValue())
}

func boolean(s *structpb.Struct, key string) bool {
	return s.GetFields()[key].GetBoolValue()
}

func sub(s *structpb.Struct, key string) *structpb.Struct {
	return s.GetFields()[key].GetStructValue()
}

func list(s *structpb.Struct, key string) []*structpb.Value {
	return s.GetFields()[key].GetListValue().GetValues()
}

func stringValue(v string) *structpb.Value { return structpb.NewStringValue(v) }

// Times travel as RFC 3339 strings; the zero time is the empty string.
func timeValue(t time.Time) *structpb.Value {
	if t.IsZero() {
		return stringValue("")
	}
	return stringValue(t.UTC().Format(time.RFC3339Nano))
}

func parseTime(s *structpb.Struct, key string) time.Time {
	raw := str(s, key)
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func structValue(s *structpb.Struct) *structpb.Value {
	if s == nil {
		return structpb.NewNullValue()
	}
	return structpb.NewStructValue(s)
}

func listValue(items []*structpb.Struct) *structpb.Value {
	vals := make([]*structpb.Value, 0, len(items))
	for _, it := range items {
		vals = append(vals, structpb.NewStructValue(it))
	}
	return structpb.NewListValue(&structpb.ListValue{Values: vals})
}

func encodeMessage(m chat.Message) *structpb.Struct {
	return newStruct(fields{
		"id":            stringValue(m.ID),
		fConversationID: stringValue(m.ConversationID),
		fSenderID:       stringValue(m.SenderID),
		"content":       stringValue(m.Content),
		"created_at":    timeValue(m.CreatedAt),
		"read":          structpb.NewBoolValue(m.Read),
		"client_token":  stringValue(m.ClientToken),
	})
}

// decodeMessage always yields a confirmed message: only stored rows cross
// the wire.
func decodeMessage(s *structpb.Struct) chat.Message {
	return chat.Message{
		ID:             str(s, "id"),
		ConversationID: str(s, fConversationID),
		SenderID:       str(s, fSenderID),
		Content:        str(s, "content"),
		CreatedAt:      parseTime(s, "created_at"),
		Status:         chat.Confirmed,
		Read:           boolean(s, "read"),
		ClientToken:    str(s, "client_token"),
	}
}

func encodeDraft(d chat.Draft) *structpb.Struct {
	return newStruct(fields{
		fConversationID: stringValue(d.ConversationID),
		fSenderID:       stringValue(d.SenderID),
		"content":       stringValue(d.Content),
		"client_token":  stringValue(d.ClientToken),
	})
}

func decodeDraft(s *structpb.Struct) chat.Draft {
	return chat.Draft{
		ConversationID: str(s, fConversationID),
		SenderID:       str(s, fSenderID),
		Content:        str(s, "content"),
		ClientToken:    str(s, "client_token"),
	}
}

func encodeProfile(p *chat.Profile) *structpb.Struct {
	if p == nil {
		return nil
	}
	return newStruct(fields{
		"id":         stringValue(p.ID),
		"first_name": stringValue(p.FirstName),
		"last_name":  stringValue(p.LastName),
		"photo_url":  stringValue(p.PhotoURL),
	})
}

func decodeProfile(s *structpb.Struct) *chat.Profile {
	if s == nil {
		return nil
	}
	return &chat.Profile{
		ID:        str(s, "id"),
		FirstName: str(s, "first_name"),
		LastName:  str(s, "last_name"),
		PhotoURL:  str(s, "photo_url"),
	}
}

func encodeConnection(c *chat.Connection) *structpb.Struct {
	if c == nil {
		return nil
	}
	return newStruct(fields{
		"id":         stringValue(c.ID),
		fSenderID:    stringValue(c.SenderID),
		fReceiverID:  stringValue(c.ReceiverID),
		fState:       stringValue(string(c.State)),
		"created_at": timeValue(c.CreatedAt),
	})
}

func decodeConnection(s *structpb.Struct) *chat.Connection {
	if s == nil {
		return nil
	}
	return &chat.Connection{
		ID:         str(s, "id"),
		SenderID:   str(s, fSenderID),
		ReceiverID: str(s, fReceiverID),
		State:      chat.ConnectionState(str(s, fState)),
		CreatedAt:  parseTime(s, "created_at"),
	}
}

func encodeConversation(c *chat.Conversation) *structpb.Struct {
	if c == nil {
		return nil
	}
	return newStruct(fields{
		"id":           stringValue(c.ID),
		fConnectionID:  stringValue(c.ConnectionID),
		fLastMessageAt: timeValue(c.LastMessageAt),
		fPreview:       stringValue(c.LastMessagePreview),
	})
}

func decodeConversation(s *structpb.Struct) *chat.Conversation {
	if s == nil {
		return nil
	}
	return &chat.Conversation{
		ID:                 str(s, "id"),
		ConnectionID:       str(s, fConnectionID),
		LastMessageAt:      parseTime(s, fLastMessageAt),
		LastMessagePreview: str(s, fPreview),
	}
}

func encodeDetail(d *chat.ConversationDetail) *structpb.Struct {
	return newStruct(fields{
		fConversation:  structValue(encodeConversation(&d.Conversation)),
		fConnection:    structValue(encodeConnection(d.Connection)),
		"sender":       structValue(encodeProfile(d.Sender)),
		"receiver":     structValue(encodeProfile(d.Receiver)),
		"unread_count": structpb.NewNumberValue(float64(d.UnreadCount)),
	})
}

func decodeDetail(s *structpb.Struct) chat.ConversationDetail {
	d := chat.ConversationDetail{
		Connection:  decodeConnection(sub(s, fConnection)),
		Sender:      decodeProfile(sub(s, "sender")),
		Receiver:    decodeProfile(sub(s, "receiver")),
		UnreadCount: num(s, "unread_count"),
	}
	if c := decodeConversation(sub(s, fConversation)); c != nil {
		d.Conversation = *c
	}
	return d
}

func encodeConnectionDetail(d *chat.ConnectionDetail) *structpb.Struct {
	return newStruct(fields{
		fConnection:     structValue(encodeConnection(&d.Connection)),
		"sender":        structValue(encodeProfile(d.Sender)),
		"receiver":      structValue(encodeProfile(d.Receiver)),
		fConversationID: stringValue(d.ConversationID),
	})
}

func decodeConnectionDetail(s *structpb.Struct) chat.ConnectionDetail {
	d := chat.ConnectionDetail{
		Sender:         decodeProfile(sub(s, "sender")),
		Receiver:       decodeProfile(sub(s, "receiver")),
		ConversationID: str(s, fConversationID),
	}
	if c := decodeConnection(sub(s, fConnection)); c != nil {
		d.Connection = *c
	}
	return d
}

func encodeConnectionDetails(list []chat.ConnectionDetail) *structpb.Struct {
	items := make([]*structpb.Struct, 0, len(list))
	for i := range list {
		items = append(items, encodeConnectionDetail(&list[i]))
	}
	return newStruct(fields{fConnections: listValue(items)})
}

func decodeConnectionDetails(s *structpb.Struct) []chat.ConnectionDetail {
	vals := list(s, fConnections)
	out := make([]chat.ConnectionDetail, 0, len(vals))
	for _, v := range vals {
		out = append(out, decodeConnectionDetail(v.GetStructValue()))
	}
	return out
}
