package bus

import "time"

// Event kinds published by the backend.
const (
	KindMessageInserted     = "message.inserted"
	KindConversationUpdated = "conversation.updated"
	KindConnectionChanged   = "connection.changed"
)

// Event represents a domain event published on the bus. Key scopes the event
// to one entity, e.g. a conversation id.
type Event struct {
	Kind      string
	Key       string
	Timestamp time.Time
	Payload   any
}
