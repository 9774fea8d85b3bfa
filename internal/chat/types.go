package chat

import "time"

// Status is the delivery state of a message in the local list.
type Status string

const (
	Pending   Status = "pending"
	Confirmed Status = "confirmed"
)

// ProvisionalPrefix marks ids generated locally for optimistic inserts.
const ProvisionalPrefix = "tmp-"

// Message is one chat utterance.
type Message struct {
	ID             string
	ConversationID string
	SenderID       string
	Content        string
	CreatedAt      time.Time
	Status         Status
	Read           bool
	// ClientToken is generated at optimistic-insert time and echoed back by the
	// backend on the stored row.
	ClientToken string
}

// IsProvisional reports whether the message carries a locally generated id.
func (m Message) IsProvisional() bool {
	return len(m.ID) >= len(ProvisionalPrefix) && m.ID[:len(ProvisionalPrefix)] == ProvisionalPrefix
}

// Draft is the payload of a durable insert.
type Draft struct {
	ConversationID string
	SenderID       string
	Content        string
	ClientToken    string
}

// ConnectionState is the state of a request between two profiles.
type ConnectionState string

const (
	ConnectionPending  ConnectionState = "pending"
	ConnectionAccepted ConnectionState = "accepted"
	ConnectionDeclined ConnectionState = "declined"
	ConnectionBlocked  ConnectionState = "blocked"
)

// Connection gates chat access between a sender and a receiver profile.
type Connection struct {
	ID         string
	SenderID   string
	ReceiverID string
	State      ConnectionState
	CreatedAt  time.Time
}

// Profile holds the display fields of a member. Empty strings are unset.
type Profile struct {
	ID        string
	FirstName string
	LastName  string
	PhotoURL  string
}

// DisplayName joins the set name parts.
func (p *Profile) DisplayName() string {
	if p == nil {
		return ""
	}
	switch {
	case p.FirstName != "" && p.LastName != "":
		return p.FirstName + " " + p.LastName
	case p.FirstName != "":
		return p.FirstName
	default:
		return p.LastName
	}
}

// Conversation is a durable channel between the two participants of an
// accepted connection. A zero LastMessageAt means it was never messaged.
type Conversation struct {
	ID                 string
	ConnectionID       string
	LastMessageAt      time.Time
	LastMessagePreview string
}

// ConversationDetail is a conversation joined with its connection and both
// participant profiles. Connection is nil when the record is missing; either
// profile may be nil.
type ConversationDetail struct {
	Conversation Conversation
	Connection   *Connection
	Sender       *Profile
	Receiver     *Profile
	UnreadCount  int
}

// Counterpart returns the participant that is not viewerID.
func (d *ConversationDetail) Counterpart(viewerID string) *Profile {
	if d.Connection == nil {
		return nil
	}
	if d.Connection.SenderID == viewerID {
		return d.Receiver
	}
	return d.Sender
}

// Involves reports whether viewerID is one side of the underlying connection.
func (d *ConversationDetail) Involves(viewerID string) bool {
	return d.Connection != nil && (d.Connection.SenderID == viewerID || d.Connection.ReceiverID == viewerID)
}

// ConnectionDetail is a connection joined with both profiles.
// ConversationID is empty until the connection is accepted.
type ConnectionDetail struct {
	Connection     Connection
	Sender         *Profile
	Receiver       *Profile
	ConversationID string
}

// Counterpart returns the profile on the other side from viewerID.
func (d *ConnectionDetail) Counterpart(viewerID string) *Profile {
	if d.Connection.SenderID == viewerID {
		return d.Receiver
	}
	return d.Sender
}

// Incoming reports whether viewerID received the request.
func (d *ConnectionDetail) Incoming(viewerID string) bool {
	return d.Connection.ReceiverID == viewerID
}

// Header is the counterpart display data of a conversation screen.
type Header struct {
	Name     string
	PhotoURL string
}

// SubscriptionStatus mirrors the realtime channel states.
type SubscriptionStatus string

const (
	StatusSubscribed   SubscriptionStatus = "SUBSCRIBED"
	StatusChannelError SubscriptionStatus = "CHANNEL_ERROR"
	StatusTimedOut     SubscriptionStatus = "TIMED_OUT"
	StatusClosed       SubscriptionStatus = "CLOSED"
)
