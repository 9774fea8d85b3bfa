package chat

import (
	"context"
	"fmt"
	"slices"
)

const (
	DefaultPlaceholderName     = "Member"
	DefaultPlaceholderPhotoURL = "https://images.unsplash.com/photo-1544005313-94ddf0286df2?q=80&w=800&auto=format&fit=crop"
)

// Resolver maps a viewer and a conversation to counterpart display data and
// lists a viewer's conversations. It holds no state; every call re-fetches.
type Resolver struct {
	backend          Backend
	placeholderName  string
	placeholderPhoto string
}

// NewResolver creates a resolver. Empty placeholders fall back to the defaults.
func NewResolver(b Backend, placeholderName, placeholderPhoto string) *Resolver {
	if placeholderName == "" {
		placeholderName = DefaultPlaceholderName
	}
	if placeholderPhoto == "" {
		placeholderPhoto = DefaultPlaceholderPhotoURL
	}
	return &Resolver{backend: b, placeholderName: placeholderName, placeholderPhoto: placeholderPhoto}
}

// Placeholder is the header shown before, or instead of, a resolved one.
func (r *Resolver) Placeholder() Header {
	return Header{Name: r.placeholderName, PhotoURL: r.placeholderPhoto}
}

// ResolveHeader returns the participant of conversationID that is not
// viewerID. Missing name or photo fields fall back to the placeholders.
func (r *Resolver) ResolveHeader(ctx context.Context, viewerID, conversationID string) (Header, error) {
	d, err := r.backend.FetchConversation(ctx, conversationID)
	if err != nil {
		return Header{}, fmt.Errorf("fetch conversation %s: %w", conversationID, Transient("fetch conversation", err))
	}
	if d == nil || d.Connection == nil {
		return Header{}, fmt.Errorf("conversation %s connection: %w", conversationID, ErrNotFound)
	}

	h := r.Placeholder()
	other := d.Counterpart(viewerID)
	if name := other.DisplayName(); name != "" {
		h.Name = name
	}
	if other != nil && other.PhotoURL != "" {
		h.PhotoURL = other.PhotoURL
	}
	return h, nil
}

// ListConversations returns the viewer's conversations ordered by
// LastMessageAt descending, never-messaged conversations last.
func (r *Resolver) ListConversations(ctx context.Context, viewerID string) ([]ConversationDetail, error) {
	all, err := r.backend.FetchConversationsForViewer(ctx, viewerID)
	if err != nil {
		return nil, fmt.Errorf("fetch conversations: %w", Transient("fetch conversations", err))
	}

	out := make([]ConversationDetail, 0, len(all))
	for _, d := range all {
		if d.Involves(viewerID) {
			out = append(out, d)
		}
	}
	slices.SortStableFunc(out, func(a, b ConversationDetail) int {
		at, bt := a.Conversation.LastMessageAt, b.Conversation.LastMessageAt
		switch {
		case at.IsZero() && bt.IsZero():
			return 0
		case at.IsZero():
			return 1
		case bt.IsZero():
			return -1
		}
		return bt.Compare(at)
	})
	return out, nil
}
