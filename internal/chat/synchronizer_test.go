package chat

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const conv = "c1"

func loadedSync(t *testing.T, f *fakeBackend, opts ...SyncOption) *Synchronizer {
	t.Helper()
	s := NewSynchronizer(f, conv, opts...)
	require.NoError(t, s.LoadInitial(context.Background(), 50))
	return s
}

func requireInvariants(t *testing.T, msgs []Message) {
	t.Helper()
	seen := make(map[string]bool)
	for i, m := range msgs {
		require.False(t, seen[m.ID], "duplicate id %s in %v", m.ID, contents(msgs))
		seen[m.ID] = true
		if i > 0 {
			require.False(t, m.CreatedAt.Before(msgs[i-1].CreatedAt), "list out of order at %d", i)
		}
	}
}

func TestLoadInitialReversesToAscending(t *testing.T) {
	f := newFakeBackend()
	f.seed(conv, "a", "u2", "A", 1)
	f.seed(conv, "b", "u1", "B", 2)
	f.seed(conv, "c", "u2", "C", 3)

	s := loadedSync(t, f)
	assert.Equal(t, []string{"A", "B", "C"}, contents(s.Messages()))
	for _, m := range s.Messages() {
		assert.Equal(t, Confirmed, m.Status)
	}
}

func TestLoadInitialEmptyConversation(t *testing.T) {
	s := loadedSync(t, newFakeBackend())
	assert.Empty(t, s.Messages())
}

func TestLoadInitialRespectsLimit(t *testing.T) {
	f := newFakeBackend()
	for i := 1; i <= 5; i++ {
		f.seed(conv, string(rune('a'+i)), "u2", string(rune('A'+i-1)), i)
	}
	s := NewSynchronizer(f, conv)
	require.NoError(t, s.LoadInitial(context.Background(), 2))
	assert.Equal(t, []string{"D", "E"}, contents(s.Messages()))
}

func TestLoadInitialFailureIsTransient(t *testing.T) {
	f := newFakeBackend()
	f.fetchErr = errors.New("connection reset")
	s := NewSynchronizer(f, conv)
	err := s.LoadInitial(context.Background(), 50)
	require.Error(t, err)
	assert.True(t, IsTransient(err))
}

func TestSendIsOptimistic(t *testing.T) {
	f := newFakeBackend()
	f.seed(conv, "a", "u2", "A", 1)
	f.insertRelease = make(chan struct{})
	s := loadedSync(t, f)

	pending, err := s.Send(context.Background(), "u1", "hello")
	require.NoError(t, err)
	assert.True(t, pending.IsProvisional())

	msgs := s.Messages()
	last := msgs[len(msgs)-1]
	assert.Equal(t, "hello", last.Content)
	assert.Equal(t, Pending, last.Status)

	close(f.insertRelease)
	s.Wait()

	msgs = s.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, Confirmed, msgs[1].Status)
	assert.False(t, msgs[1].IsProvisional())
}

func TestSendTrimsContent(t *testing.T) {
	s := loadedSync(t, newFakeBackend())
	m, err := s.Send(context.Background(), "u1", "  hi there \n")
	require.NoError(t, err)
	assert.Equal(t, "hi there", m.Content)
	s.Wait()
}

func TestSendRejectsEmptyContent(t *testing.T) {
	f := newFakeBackend()
	f.seed(conv, "a", "u2", "A", 1)
	s := loadedSync(t, f)

	for _, content := range []string{"", "   ", "\t\n"} {
		_, err := s.Send(context.Background(), "u1", content)
		assert.ErrorIs(t, err, ErrEmptyContent)
	}
	s.Wait()
	assert.Len(t, s.Messages(), 1)
	_, inserts, _ := f.counts()
	assert.Zero(t, inserts)
}

// Scenario: [A, B] plus an optimistic C; the insert confirms C' and a poll
// returns [A, B, C']. The list must hold exactly three entries.
func TestSendThenPollCollapsesToOneEntry(t *testing.T) {
	f := newFakeBackend()
	f.seed(conv, "a", "u2", "A", 1)
	f.seed(conv, "b", "u1", "B", 2)
	f.insertRelease = make(chan struct{})
	s := loadedSync(t, f)

	_, err := s.Send(context.Background(), "u1", "C")
	require.NoError(t, err)
	msgs := s.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, Pending, msgs[2].Status)

	close(f.insertRelease)
	s.Wait()
	require.NoError(t, s.LoadInitial(context.Background(), 50))

	msgs = s.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, []string{"A", "B", "C"}, contents(msgs))
	assert.Equal(t, "s1", msgs[2].ID)
	assert.Equal(t, Confirmed, msgs[2].Status)
}

// A poll and a push both observe the stored row before the insert response
// returns; the token still collapses all three paths into one entry.
func TestSlowSendRacingPollAndPush(t *testing.T) {
	f := newFakeBackend()
	f.seed(conv, "a", "u2", "A", 1)
	f.insertRelease = make(chan struct{})
	s := loadedSync(t, f)

	_, err := s.Send(context.Background(), "u1", "racy")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, inserts, _ := f.counts()
		return inserts == 1
	}, time.Second, 5*time.Millisecond)
	require.NoError(t, s.LoadInitial(context.Background(), 50))

	msgs := s.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, Confirmed, msgs[1].Status)
	assert.False(t, s.ReceivePush(msgs[1]))

	close(f.insertRelease)
	s.Wait()
	msgs = s.Messages()
	require.Len(t, msgs, 2)
	requireInvariants(t, msgs)
}

func TestPushBeforeSendResponse(t *testing.T) {
	f := newFakeBackend()
	f.pushOnInsert = true
	f.insertRelease = make(chan struct{})
	s := loadedSync(t, f)

	h, err := f.SubscribeToInserts(context.Background(), conv, func(m Message) { s.ReceivePush(m) }, func(SubscriptionStatus) {})
	require.NoError(t, err)
	defer func() { _ = f.Unsubscribe(h) }()

	_, err = s.Send(context.Background(), "u1", "pushed")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		msgs := s.Messages()
		return len(msgs) == 1 && msgs[0].Status == Confirmed
	}, time.Second, 5*time.Millisecond)

	close(f.insertRelease)
	s.Wait()
	assert.Len(t, s.Messages(), 1)
}

func TestReceivePushDeduplicatesByServerID(t *testing.T) {
	f := newFakeBackend()
	a := f.seed(conv, "a", "u2", "A", 1)
	s := loadedSync(t, f)

	b := Message{ID: "b", ConversationID: conv, SenderID: "u2", Content: "B", CreatedAt: t0.Add(5 * time.Second)}
	assert.True(t, s.ReceivePush(b))
	assert.False(t, s.ReceivePush(b))
	assert.False(t, s.ReceivePush(a))
	assert.Equal(t, []string{"A", "B"}, contents(s.Messages()))
}

func TestReceivePushIgnoresOtherConversation(t *testing.T) {
	s := loadedSync(t, newFakeBackend())
	assert.False(t, s.ReceivePush(Message{ID: "x", ConversationID: "other", Content: "X", CreatedAt: t0}))
	assert.Empty(t, s.Messages())
}

func TestPushesKeepOrder(t *testing.T) {
	s := loadedSync(t, newFakeBackend())
	s.ReceivePush(Message{ID: "3", ConversationID: conv, Content: "third", CreatedAt: t0.Add(3 * time.Second)})
	s.ReceivePush(Message{ID: "1", ConversationID: conv, Content: "first", CreatedAt: t0.Add(1 * time.Second)})
	s.ReceivePush(Message{ID: "2a", ConversationID: conv, Content: "tie-a", CreatedAt: t0.Add(2 * time.Second)})
	s.ReceivePush(Message{ID: "2b", ConversationID: conv, Content: "tie-b", CreatedAt: t0.Add(2 * time.Second)})
	assert.Equal(t, []string{"first", "tie-a", "tie-b", "third"}, contents(s.Messages()))
}

func TestSnapshotTruncatesList(t *testing.T) {
	f := newFakeBackend()
	f.seed(conv, "a", "u2", "A", 1)
	f.seed(conv, "b", "u2", "B", 2)
	f.seed(conv, "c", "u2", "C", 3)
	s := loadedSync(t, f)
	require.Len(t, s.Messages(), 3)

	f.remove(conv, "b")
	require.NoError(t, s.LoadInitial(context.Background(), 50))
	assert.Equal(t, []string{"A", "C"}, contents(s.Messages()))
}

func TestSnapshotKeepsUnconfirmedPending(t *testing.T) {
	f := newFakeBackend()
	f.seed(conv, "a", "u2", "A", 1)
	f.insertErr = errors.New("offline")
	s := loadedSync(t, f)

	_, err := s.Send(context.Background(), "u1", "queued")
	require.NoError(t, err)
	s.Wait()

	require.NoError(t, s.LoadInitial(context.Background(), 50))
	msgs := s.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, Pending, msgs[1].Status)
}

func TestFailedSendStaysPendingAndResends(t *testing.T) {
	f := newFakeBackend()
	f.insertErr = errors.New("timeout")
	s := loadedSync(t, f)

	pending, err := s.Send(context.Background(), "u1", "retry me")
	require.NoError(t, err)
	s.Wait()
	assert.True(t, s.Failed(pending.ID))
	assert.Equal(t, Pending, s.Messages()[0].Status)

	f.mu.Lock()
	f.insertErr = nil
	f.mu.Unlock()

	require.NoError(t, s.Resend(context.Background(), pending.ID))
	s.Wait()
	assert.False(t, s.Failed(pending.ID))
	msgs := s.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, Confirmed, msgs[0].Status)
	assert.Equal(t, pending.ClientToken, msgs[0].ClientToken)
}

func TestResendUnknownMessage(t *testing.T) {
	s := loadedSync(t, newFakeBackend())
	assert.ErrorIs(t, s.Resend(context.Background(), "tmp-missing"), ErrNotFound)
}

func TestSendUpdatesConversationSummary(t *testing.T) {
	f := newFakeBackend()
	s := loadedSync(t, f)

	long := strings.Repeat("x", 150)
	_, err := s.Send(context.Background(), "u1", long)
	require.NoError(t, err)
	s.Wait()

	f.mu.Lock()
	defer f.mu.Unlock()
	require.Len(t, f.summaries, 1)
	assert.Equal(t, conv, f.summaries[0].conversationID)
	assert.Len(t, f.summaries[0].preview, 100)
	assert.True(t, f.summaries[0].at.Equal(f.messages[conv][0].CreatedAt))
}

func TestSendClampsLaggingClock(t *testing.T) {
	f := newFakeBackend()
	f.seed(conv, "a", "u2", "A", 10)
	f.insertRelease = make(chan struct{})
	defer close(f.insertRelease)
	s := loadedSync(t, f, WithClock(func() time.Time { return t0 }))

	_, err := s.Send(context.Background(), "u1", "late clock")
	require.NoError(t, err)
	msgs := s.Messages()
	assert.Equal(t, "late clock", msgs[len(msgs)-1].Content)
	requireInvariants(t, msgs)
}

func TestOnChangeReceivesCopies(t *testing.T) {
	f := newFakeBackend()
	f.seed(conv, "a", "u2", "A", 1)
	var calls [][]Message
	s := NewSynchronizer(f, conv, WithOnChange(func(m []Message) { calls = append(calls, m) }))
	require.NoError(t, s.LoadInitial(context.Background(), 50))
	require.NoError(t, s.LoadInitial(context.Background(), 50))
	require.Len(t, calls, 1, "identical snapshot must not notify")
	assert.Equal(t, []string{"A"}, contents(calls[0]))
}

func TestGateDiscardsResults(t *testing.T) {
	f := newFakeBackend()
	f.seed(conv, "a", "u2", "A", 1)
	s := NewSynchronizer(f, conv)
	rows, err := s.Fetch(context.Background(), 50)
	require.NoError(t, err)

	closed := func() bool { return false }
	assert.False(t, s.applySnapshot(closed, rows))
	applied, _ := s.applyConfirmed(closed, rows[0])
	assert.False(t, applied)
	_, err = s.send(context.Background(), closed, "u1", "late")
	assert.ErrorIs(t, err, ErrStaleContext)
	assert.Empty(t, s.Messages())
}

// Random interleavings of loads, pushes and sends never produce duplicate
// server ids or out-of-order entries.
func TestNoDuplicatesUnderInterleaving(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 20; round++ {
		f := newFakeBackend()
		f.seed(conv, "a", "u2", "A", 1)
		f.pushOnInsert = true
		s := loadedSync(t, f)
		h, err := f.SubscribeToInserts(context.Background(), conv, func(m Message) { s.ReceivePush(m) }, func(SubscriptionStatus) {})
		require.NoError(t, err)

		for step := 0; step < 30; step++ {
			switch rng.Intn(4) {
			case 0:
				_, err := s.Send(context.Background(), "u1", "msg")
				require.NoError(t, err)
			case 1:
				require.NoError(t, s.LoadInitial(context.Background(), 50))
			case 2:
				rows, _ := f.FetchMessages(context.Background(), conv, 50)
				if len(rows) > 0 {
					s.ReceivePush(rows[rng.Intn(len(rows))])
				}
			case 3:
				f.seed(conv, "x"+string(rune('a'+step)), "u2", "other", 100+step)
			}
			requireInvariants(t, s.Messages())
		}
		s.Wait()
		require.NoError(t, s.LoadInitial(context.Background(), 50))
		requireInvariants(t, s.Messages())
		for _, m := range s.Messages() {
			assert.Equal(t, Confirmed, m.Status)
		}
		_ = f.Unsubscribe(h)
	}
}

func TestPreviewIsRuneSafe(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"short", "hello", 100, "hello"},
		{"exact", "abc", 3, "abc"},
		{"ascii cut", "abcdef", 4, "abcd"},
		{"multibyte boundary", "héllo", 2, "h"},
		{"default", strings.Repeat("a", 120), 0, strings.Repeat("a", 100)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Preview(tt.in, tt.max))
		})
	}
}
