package chat

import (
	"context"
	"time"
)

// SubscriptionHandle is an open realtime feed bound to one conversation.
type SubscriptionHandle interface {
	ConversationID() string
}

// Backend is the data and pub/sub service the chat core consumes.
type Backend interface {
	// FetchMessages returns up to limit messages, most recent first.
	FetchMessages(ctx context.Context, conversationID string, limit int) ([]Message, error)
	// InsertMessage durably stores a draft and returns the confirmed row.
	InsertMessage(ctx context.Context, d Draft) (Message, error)
	UpdateConversationSummary(ctx context.Context, conversationID string, lastMessageAt time.Time, preview string) error
	// MarkMessagesRead flags messages not authored by viewerID as read.
	MarkMessagesRead(ctx context.Context, conversationID, viewerID string) error
	FetchConversationsForViewer(ctx context.Context, viewerID string) ([]ConversationDetail, error)
	// FetchConversation returns ErrNotFound if the conversation is missing.
	FetchConversation(ctx context.Context, conversationID string) (*ConversationDetail, error)
	// SubscribeToInserts delivers every message inserted into the
	// conversation until Unsubscribe is called. Callbacks may run on any
	// goroutine.
	SubscribeToInserts(ctx context.Context, conversationID string, onMessage func(Message), onStatus func(SubscriptionStatus)) (SubscriptionHandle, error)
	Unsubscribe(h SubscriptionHandle) error
}
