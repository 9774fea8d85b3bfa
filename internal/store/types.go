package store

// Profile is a member's display record. Empty strings are stored as NULL.
type Profile struct {
	ID        string
	FirstName string
	LastName  string
	PhotoURL  string
}

// Connection is a request between two profiles.
type Connection struct {
	ID         string
	SenderID   string
	ReceiverID string
	Status     string // pending, accepted, declined, blocked
	CreatedAt  int64
}

// Conversation is the chat channel of an accepted connection.
// LastMessageAt is 0 when the conversation was never messaged.
type Conversation struct {
	ID                 string
	ConnectionID       string
	LastMessageAt      int64
	LastMessagePreview string
}

// ConversationView is a conversation joined with its connection and both
// participant profiles. Nil pointers mean the joined row is missing.
type ConversationView struct {
	Conversation Conversation
	Connection   *Connection
	Sender       *Profile
	Receiver     *Profile
	UnreadCount  int
}

// Message is a stored chat message.
type Message struct {
	ID             string
	ConversationID string
	SenderID       string
	Content        string
	ClientToken    string
	IsRead         bool
	CreatedAt      int64
}

// ConnectionView is a connection joined with both profiles. ConversationID
// is empty until the connection is accepted.
type ConnectionView struct {
	Connection     Connection
	Sender         *Profile
	Receiver       *Profile
	ConversationID string
}
