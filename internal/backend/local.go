// Package backend implements the chat data and realtime-notification service
// on top of the SQLite store and the in-process event bus.
package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/matheus3301/vivah/internal/bus"
	"github.com/matheus3301/vivah/internal/chat"
	"github.com/matheus3301/vivah/internal/store"
	"go.uber.org/zap"
)

// ErrConnectionExists is returned when a connection between two profiles
// already exists in either direction.
var ErrConnectionExists = store.ErrConnectionExists

// ErrInvalidState is returned for a connection response other than
// accepted, declined or blocked.
var ErrInvalidState = errors.New("invalid connection state")

// subscriptionBuffer bounds undelivered pushes per subscriber. Overflow is
// dropped and recovered by the client's poll.
const subscriptionBuffer = 64

// Directory manages the profiles and connections that gate conversations.
type Directory interface {
	UpsertProfile(ctx context.Context, p chat.Profile) error
	RequestConnection(ctx context.Context, senderID, receiverID string) (chat.Connection, error)
	// RespondConnection moves a connection to state. Accepting returns the
	// conversation created for it.
	RespondConnection(ctx context.Context, connectionID string, state chat.ConnectionState) (chat.Connection, *chat.Conversation, error)
	// ListConnections returns viewerID's connections in either direction,
	// newest first. An empty state returns every state.
	ListConnections(ctx context.Context, viewerID string, state chat.ConnectionState) ([]chat.ConnectionDetail, error)
	// PendingRequests returns the requests waiting for viewerID to respond.
	PendingRequests(ctx context.Context, viewerID string) ([]chat.ConnectionDetail, error)
	// ConnectionBetween returns the connection of two profiles in either
	// direction, or ErrNotFound.
	ConnectionBetween(ctx context.Context, a, b string) (chat.Connection, error)
}

// Service is the full surface exposed by the daemon.
type Service interface {
	chat.Backend
	Directory
}

// Local is a Service backed by a store and a bus. Every durable insert is
// published as a message.inserted event keyed by conversation id.
type Local struct {
	db     *store.DB
	bus    *bus.Bus
	logger *zap.Logger
}

var _ Service = (*Local)(nil)

// NewLocal creates a new local backend.
func NewLocal(db *store.DB, b *bus.Bus, logger *zap.Logger) *Local {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Local{db: db, bus: b, logger: logger}
}

func (l *Local) FetchMessages(_ context.Context, conversationID string, limit int) ([]chat.Message, error) {
	rows, err := l.db.ListMessages(conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	msgs := make([]chat.Message, 0, len(rows))
	for i := range rows {
		msgs = append(msgs, toMessage(&rows[i]))
	}
	return msgs, nil
}

func (l *Local) InsertMessage(_ context.Context, d chat.Draft) (chat.Message, error) {
	if strings.TrimSpace(d.Content) == "" {
		return chat.Message{}, chat.ErrEmptyContent
	}
	v, err := l.db.GetConversationView(d.ConversationID, d.SenderID)
	if err != nil {
		return chat.Message{}, fmt.Errorf("get conversation: %w", err)
	}
	if v == nil {
		return chat.Message{}, fmt.Errorf("conversation %s: %w", d.ConversationID, chat.ErrNotFound)
	}
	// A sender outside the connection sees the conversation as missing.
	if detail := toDetail(v); !detail.Involves(d.SenderID) {
		return chat.Message{}, fmt.Errorf("conversation %s for sender %q: %w", d.ConversationID, d.SenderID, chat.ErrNotFound)
	}

	row, err := l.db.InsertMessage(d.ConversationID, d.SenderID, d.Content, d.ClientToken)
	if err != nil {
		return chat.Message{}, err
	}
	m := toMessage(row)

	l.bus.Publish(bus.Event{
		Kind:      bus.KindMessageInserted,
		Key:       m.ConversationID,
		Timestamp: time.Now(),
		Payload:   m,
	})
	l.logger.Debug("message inserted", zap.String("conversation_id", m.ConversationID), zap.String("msg_id", m.ID))
	return m, nil
}

func (l *Local) UpdateConversationSummary(_ context.Context, conversationID string, lastMessageAt time.Time, preview string) error {
	if err := l.db.UpdateConversationSummary(conversationID, lastMessageAt.UnixMilli(), preview); err != nil {
		return mapNotFound(err)
	}
	l.bus.Publish(bus.Event{
		Kind:      bus.KindConversationUpdated,
		Key:       conversationID,
		Timestamp: time.Now(),
		Payload: chat.Conversation{
			ID:                 conversationID,
			LastMessageAt:      lastMessageAt,
			LastMessagePreview: preview,
		},
	})
	return nil
}

func (l *Local) MarkMessagesRead(_ context.Context, conversationID, viewerID string) error {
	n, err := l.db.MarkMessagesRead(conversationID, viewerID)
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	if n > 0 {
		l.logger.Debug("messages marked read", zap.String("conversation_id", conversationID), zap.Int64("count", n))
	}
	return nil
}

func (l *Local) FetchConversationsForViewer(_ context.Context, viewerID string) ([]chat.ConversationDetail, error) {
	views, err := l.db.ListConversationsForProfile(viewerID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	out := make([]chat.ConversationDetail, 0, len(views))
	for i := range views {
		out = append(out, toDetail(&views[i]))
	}
	return out, nil
}

func (l *Local) FetchConversation(_ context.Context, conversationID string) (*chat.ConversationDetail, error) {
	v, err := l.db.GetConversationView(conversationID, "")
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	if v == nil {
		return nil, fmt.Errorf("conversation %s: %w", conversationID, chat.ErrNotFound)
	}
	d := toDetail(v)
	return &d, nil
}

type subscription struct {
	conversationID string
	unsub          func()
	done           chan struct{}
}

func (s *subscription) ConversationID() string { return s.conversationID }

// SubscribeToInserts forwards message.inserted events of one conversation.
// The feed ends on Unsubscribe or when ctx is done.
func (l *Local) SubscribeToInserts(ctx context.Context, conversationID string, onMessage func(chat.Message), onStatus func(chat.SubscriptionStatus)) (chat.SubscriptionHandle, error) {
	if conversationID == "" {
		return nil, chat.ErrMissingIdentity
	}
	if onStatus == nil {
		onStatus = func(chat.SubscriptionStatus) {}
	}
	ch, unsub := l.bus.Subscribe(bus.KindMessageInserted, conversationID, subscriptionBuffer)
	sub := &subscription{conversationID: conversationID, unsub: unsub, done: make(chan struct{})}

	onStatus(chat.StatusSubscribed)
	go func() {
		defer close(sub.done)
		defer onStatus(chat.StatusClosed)
		for evt := range ch {
			m, ok := evt.Payload.(chat.Message)
			if !ok {
				continue
			}
			onMessage(m)
		}
	}()
	go func() {
		select {
		case <-ctx.Done():
			unsub()
		case <-sub.done:
		}
	}()
	return sub, nil
}

// Unsubscribe closes the feed and waits for the last callback to return.
func (l *Local) Unsubscribe(h chat.SubscriptionHandle) error {
	sub, ok := h.(*subscription)
	if !ok {
		return fmt.Errorf("unsubscribe: unknown handle %T", h)
	}
	sub.unsub()
	<-sub.done
	return nil
}

func (l *Local) UpsertProfile(_ context.Context, p chat.Profile) error {
	if p.ID == "" {
		return chat.ErrMissingIdentity
	}
	return l.db.UpsertProfile(&store.Profile{ID: p.ID, FirstName: p.FirstName, LastName: p.LastName, PhotoURL: p.PhotoURL})
}

func (l *Local) RequestConnection(_ context.Context, senderID, receiverID string) (chat.Connection, error) {
	c, err := l.db.CreateConnection(senderID, receiverID)
	if err != nil {
		return chat.Connection{}, fmt.Errorf("request connection: %w", err)
	}
	l.publishConnection(c)
	return *toConnection(c), nil
}

func (l *Local) RespondConnection(_ context.Context, connectionID string, state chat.ConnectionState) (chat.Connection, *chat.Conversation, error) {
	var conv *chat.Conversation
	switch state {
	case chat.ConnectionAccepted:
		c, err := l.db.AcceptConnection(connectionID)
		if err != nil {
			return chat.Connection{}, nil, mapNotFound(err)
		}
		cv := toConversation(*c)
		conv = &cv
	case chat.ConnectionDeclined, chat.ConnectionBlocked:
		if _, err := l.db.SetConnectionStatus(connectionID, string(state)); err != nil {
			return chat.Connection{}, nil, mapNotFound(err)
		}
	default:
		return chat.Connection{}, nil, fmt.Errorf("%w: %q", ErrInvalidState, state)
	}

	c, err := l.db.GetConnection(connectionID)
	if err != nil {
		return chat.Connection{}, nil, err
	}
	if c == nil {
		return chat.Connection{}, nil, fmt.Errorf("connection %s: %w", connectionID, chat.ErrNotFound)
	}
	l.publishConnection(c)
	return *toConnection(c), conv, nil
}

func (l *Local) ListConnections(_ context.Context, viewerID string, state chat.ConnectionState) ([]chat.ConnectionDetail, error) {
	if viewerID == "" {
		return nil, chat.ErrMissingIdentity
	}
	switch state {
	case "", chat.ConnectionPending, chat.ConnectionAccepted, chat.ConnectionDeclined, chat.ConnectionBlocked:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidState, state)
	}
	views, err := l.db.ListConnectionsForProfile(viewerID, string(state))
	if err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}
	return toConnectionDetails(views), nil
}

func (l *Local) PendingRequests(_ context.Context, viewerID string) ([]chat.ConnectionDetail, error) {
	if viewerID == "" {
		return nil, chat.ErrMissingIdentity
	}
	views, err := l.db.ListPendingRequests(viewerID)
	if err != nil {
		return nil, fmt.Errorf("list pending requests: %w", err)
	}
	return toConnectionDetails(views), nil
}

func (l *Local) ConnectionBetween(_ context.Context, a, b string) (chat.Connection, error) {
	c, err := l.db.GetConnectionBetween(a, b)
	if err != nil {
		return chat.Connection{}, fmt.Errorf("get connection: %w", err)
	}
	if c == nil {
		return chat.Connection{}, fmt.Errorf("connection between %s and %s: %w", a, b, chat.ErrNotFound)
	}
	return *toConnection(c), nil
}

func (l *Local) publishConnection(c *store.Connection) {
	l.bus.Publish(bus.Event{
		Kind:      bus.KindConnectionChanged,
		Key:       c.ID,
		Timestamp: time.Now(),
		Payload:   *toConnection(c),
	})
}

func mapNotFound(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %v", chat.ErrNotFound, err)
	}
	return err
}
