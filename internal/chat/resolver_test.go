package chat

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func detail(id, sender, receiver string, lastAt time.Time) *ConversationDetail {
	return &ConversationDetail{
		Conversation: Conversation{ID: id, ConnectionID: "conn-" + id, LastMessageAt: lastAt},
		Connection:   &Connection{ID: "conn-" + id, SenderID: sender, ReceiverID: receiver, State: ConnectionAccepted},
		Sender:       &Profile{ID: sender, FirstName: "Asha", LastName: "Rao", PhotoURL: "https://img/asha.jpg"},
		Receiver:     &Profile{ID: receiver, FirstName: "Vikram"},
	}
}

func TestResolveHeaderPicksCounterpart(t *testing.T) {
	f := newFakeBackend()
	f.details["c1"] = detail("c1", "u1", "u2", time.Time{})
	r := NewResolver(f, "", "")

	h, err := r.ResolveHeader(context.Background(), "u2", "c1")
	require.NoError(t, err)
	assert.Equal(t, Header{Name: "Asha Rao", PhotoURL: "https://img/asha.jpg"}, h)

	h, err = r.ResolveHeader(context.Background(), "u1", "c1")
	require.NoError(t, err)
	assert.Equal(t, "Vikram", h.Name)
	assert.Equal(t, DefaultPlaceholderPhotoURL, h.PhotoURL)
}

func TestResolveHeaderPlaceholderForEmptyProfile(t *testing.T) {
	f := newFakeBackend()
	d := detail("c1", "u1", "u2", time.Time{})
	d.Receiver = nil
	f.details["c1"] = d
	r := NewResolver(f, "Member", "https://img/default.jpg")

	h, err := r.ResolveHeader(context.Background(), "u1", "c1")
	require.NoError(t, err)
	assert.Equal(t, Header{Name: "Member", PhotoURL: "https://img/default.jpg"}, h)
}

func TestResolveHeaderNotFound(t *testing.T) {
	f := newFakeBackend()
	d := detail("c2", "u1", "u2", time.Time{})
	d.Connection = nil
	f.details["c2"] = d
	r := NewResolver(f, "", "")

	_, err := r.ResolveHeader(context.Background(), "u1", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, IsTransient(err))

	_, err = r.ResolveHeader(context.Background(), "u1", "c2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListConversationsNullsLast(t *testing.T) {
	f := newFakeBackend()
	f.details["a"] = detail("a", "u1", "u2", time.Time{})
	f.details["b"] = detail("b", "u1", "u3", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	f.details["c"] = detail("c", "u4", "u1", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	r := NewResolver(f, "", "")

	got, err := r.ListConversations(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "c", got[0].Conversation.ID)
	assert.Equal(t, "b", got[1].Conversation.ID)
	assert.Equal(t, "a", got[2].Conversation.ID)
	assert.True(t, got[2].Conversation.LastMessageAt.IsZero())
}

func TestListConversationsFiltersViewer(t *testing.T) {
	f := newFakeBackend()
	f.details["a"] = detail("a", "u1", "u2", time.Time{})
	f.details["b"] = detail("b", "u3", "u4", time.Time{})
	r := NewResolver(f, "", "")

	got, err := r.ListConversations(context.Background(), "u2")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].Conversation.ID)
}
