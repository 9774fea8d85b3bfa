package chat

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"
)

var t0 = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

type summary struct {
	conversationID string
	at             time.Time
	preview        string
}

type fakeHandle struct {
	conversationID string
	onMessage      func(Message)
	onStatus       func(SubscriptionStatus)
}

func (h *fakeHandle) ConversationID() string { return h.conversationID }

// fakeBackend is an in-memory Backend with hooks for holding calls open.
type fakeBackend struct {
	mu sync.Mutex

	messages map[string][]Message
	details  map[string]*ConversationDetail
	seq      int

	insertErr    error
	fetchErr     error
	subscribeErr error
	pushOnInsert bool

	// When non-nil, FetchMessages signals fetchStarted and then blocks until
	// fetchRelease is closed.
	fetchStarted chan struct{}
	fetchRelease chan struct{}
	// When non-nil, InsertMessage stores the row (or, with insertErr set,
	// fails) only after insertRelease is closed.
	insertRelease chan struct{}

	handles     map[*fakeHandle]struct{}
	maxOpenSubs int
	subscribes  int

	fetchCalls  int
	insertCalls int
	markReads   []string
	summaries   []summary
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		messages: make(map[string][]Message),
		details:  make(map[string]*ConversationDetail),
		handles:  make(map[*fakeHandle]struct{}),
	}
}

// seed stores a confirmed message at t0 plus offset seconds.
func (f *fakeBackend) seed(conversationID, id, sender, content string, offset int) Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := Message{
		ID:             id,
		ConversationID: conversationID,
		SenderID:       sender,
		Content:        content,
		CreatedAt:      t0.Add(time.Duration(offset) * time.Second),
		Status:         Confirmed,
	}
	f.messages[conversationID] = append(f.messages[conversationID], m)
	return m
}

func (f *fakeBackend) remove(conversationID, id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages[conversationID] = slices.DeleteFunc(f.messages[conversationID], func(m Message) bool { return m.ID == id })
}

func (f *fakeBackend) push(m Message) {
	f.mu.Lock()
	var targets []*fakeHandle
	for h := range f.handles {
		if h.conversationID == m.ConversationID {
			targets = append(targets, h)
		}
	}
	f.mu.Unlock()
	for _, h := range targets {
		h.onMessage(m)
	}
}

func (f *fakeBackend) openSubs() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.handles)
}

func (f *fakeBackend) counts() (fetches, inserts, reads int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetchCalls, f.insertCalls, len(f.markReads)
}

func (f *fakeBackend) FetchMessages(_ context.Context, conversationID string, limit int) ([]Message, error) {
	f.mu.Lock()
	f.fetchCalls++
	started, release := f.fetchStarted, f.fetchRelease
	err := f.fetchErr
	f.mu.Unlock()

	if started != nil {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
	}
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	all := slices.Clone(f.messages[conversationID])
	slices.SortStableFunc(all, func(a, b Message) int { return b.CreatedAt.Compare(a.CreatedAt) })
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (f *fakeBackend) InsertMessage(_ context.Context, d Draft) (Message, error) {
	f.mu.Lock()
	f.insertCalls++
	if f.insertErr != nil {
		err, release := f.insertErr, f.insertRelease
		f.mu.Unlock()
		if release != nil {
			<-release
		}
		return Message{}, err
	}
	for _, m := range f.messages[d.ConversationID] {
		if d.ClientToken != "" && m.ClientToken == d.ClientToken {
			f.mu.Unlock()
			return m, nil
		}
	}
	f.seq++
	m := Message{
		ID:             fmt.Sprintf("s%d", f.seq),
		ConversationID: d.ConversationID,
		SenderID:       d.SenderID,
		Content:        d.Content,
		CreatedAt:      t0.Add(time.Hour + time.Duration(f.seq)*time.Second),
		Status:         Confirmed,
		ClientToken:    d.ClientToken,
	}
	f.messages[d.ConversationID] = append(f.messages[d.ConversationID], m)
	release, push := f.insertRelease, f.pushOnInsert
	f.mu.Unlock()

	if push {
		f.push(m)
	}
	if release != nil {
		<-release
	}
	return m, nil
}

func (f *fakeBackend) UpdateConversationSummary(_ context.Context, conversationID string, at time.Time, preview string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.summaries = append(f.summaries, summary{conversationID, at, preview})
	return nil
}

func (f *fakeBackend) MarkMessagesRead(_ context.Context, conversationID, viewerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markReads = append(f.markReads, conversationID+"/"+viewerID)
	return nil
}

func (f *fakeBackend) FetchConversationsForViewer(_ context.Context, viewerID string) ([]ConversationDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []ConversationDetail
	for _, d := range f.details {
		out = append(out, *d)
	}
	slices.SortFunc(out, func(a, b ConversationDetail) int {
		if a.Conversation.ID < b.Conversation.ID {
			return -1
		}
		return 1
	})
	return out, nil
}

func (f *fakeBackend) FetchConversation(_ context.Context, conversationID string) (*ConversationDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.details[conversationID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (f *fakeBackend) SubscribeToInserts(_ context.Context, conversationID string, onMessage func(Message), onStatus func(SubscriptionStatus)) (SubscriptionHandle, error) {
	f.mu.Lock()
	f.subscribes++
	if f.subscribeErr != nil {
		err := f.subscribeErr
		f.mu.Unlock()
		return nil, err
	}
	h := &fakeHandle{conversationID: conversationID, onMessage: onMessage, onStatus: onStatus}
	f.handles[h] = struct{}{}
	if len(f.handles) > f.maxOpenSubs {
		f.maxOpenSubs = len(f.handles)
	}
	f.mu.Unlock()
	onStatus(StatusSubscribed)
	return h, nil
}

func (f *fakeBackend) Unsubscribe(h SubscriptionHandle) error {
	fh, ok := h.(*fakeHandle)
	if !ok {
		return fmt.Errorf("unknown handle %T", h)
	}
	f.mu.Lock()
	delete(f.handles, fh)
	f.mu.Unlock()
	fh.onStatus(StatusClosed)
	return nil
}

func contents(msgs []Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Content
	}
	return out
}
