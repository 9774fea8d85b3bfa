package chat

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultHistoryLimit is the number of messages fetched per load.
const DefaultHistoryLimit = 50

// gate reports whether a result may still be applied. A nil gate always allows.
type gate func() bool

// SyncOption configures a Synchronizer.
type SyncOption func(*Synchronizer)

// WithLogger sets the logger. Nil keeps the no-op logger.
func WithLogger(l *zap.Logger) SyncOption {
	return func(s *Synchronizer) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the clock used to stamp optimistic inserts.
func WithClock(now func() time.Time) SyncOption {
	return func(s *Synchronizer) { s.now = now }
}

// WithPreviewLength sets the maximum conversation preview length.
func WithPreviewLength(n int) SyncOption {
	return func(s *Synchronizer) { s.previewLen = n }
}

// WithOnChange registers a callback receiving a copy of the list after every
// change. It runs with the list locked and must not call back into the
// Synchronizer.
func WithOnChange(fn func([]Message)) SyncOption {
	return func(s *Synchronizer) { s.onChange = fn }
}

// Synchronizer owns the ordered, de-duplicated message list of one
// conversation. Snapshots (initial load and poll ticks), realtime pushes and
// optimistic sends all merge through it.
type Synchronizer struct {
	backend        Backend
	conversationID string
	logger         *zap.Logger
	now            func() time.Time
	previewLen     int
	onChange       func([]Message)

	mu       sync.Mutex
	messages []Message
	failed   map[string]error
	inflight sync.WaitGroup
}

// NewSynchronizer creates an empty list for conversationID.
func NewSynchronizer(b Backend, conversationID string, opts ...SyncOption) *Synchronizer {
	s := &Synchronizer{
		backend:        b,
		conversationID: conversationID,
		logger:         zap.NewNop(),
		now:            time.Now,
		previewLen:     DefaultPreviewLength,
		failed:         make(map[string]error),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ConversationID returns the conversation this list belongs to.
func (s *Synchronizer) ConversationID() string { return s.conversationID }

// Messages returns a copy of the current list.
func (s *Synchronizer) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.messages)
}

// Failed reports whether the pending message with the given provisional id
// had its last send attempt fail.
func (s *Synchronizer) Failed(provisionalID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.failed[provisionalID]
	return ok
}

// Wait blocks until every in-flight send has resolved.
func (s *Synchronizer) Wait() {
	s.inflight.Wait()
}

// Fetch returns the most recent limit messages in ascending order without
// touching the list.
func (s *Synchronizer) Fetch(ctx context.Context, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	rows, err := s.backend.FetchMessages(ctx, s.conversationID, limit)
	if err != nil {
		return nil, Transient("fetch messages", err)
	}
	slices.Reverse(rows)
	return rows, nil
}

// LoadInitial fetches the most recent limit messages and replaces the list.
func (s *Synchronizer) LoadInitial(ctx context.Context, limit int) error {
	rows, err := s.Fetch(ctx, limit)
	if err != nil {
		return err
	}
	s.ReceiveSnapshot(rows)
	return nil
}

// ReceiveSnapshot replaces every confirmed entry with rows. Pending entries
// survive unless a row carries their client token.
func (s *Synchronizer) ReceiveSnapshot(rows []Message) {
	s.applySnapshot(nil, rows)
}

// ReceivePush merges one server-confirmed row. It returns false if the row was
// already present.
func (s *Synchronizer) ReceivePush(m Message) bool {
	applied, _ := s.applyConfirmed(nil, m)
	return applied
}

// Send appends a pending message and issues the durable insert in the
// background. The returned message is the optimistic entry.
func (s *Synchronizer) Send(ctx context.Context, senderID, content string) (Message, error) {
	return s.send(ctx, nil, senderID, content)
}

// Resend re-issues the insert of a pending message whose send failed. The
// client token is reused so the backend stores at most one row.
func (s *Synchronizer) Resend(ctx context.Context, provisionalID string) error {
	return s.resend(ctx, nil, provisionalID)
}

func (s *Synchronizer) update(g gate, fn func() bool) (applied, changed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g != nil && !g() {
		return false, false
	}
	changed = fn()
	if changed && s.onChange != nil {
		s.onChange(slices.Clone(s.messages))
	}
	return true, changed
}

// barrier waits for any update holding the list to finish.
func (s *Synchronizer) barrier() {
	s.mu.Lock()
	defer s.mu.Unlock()
}

func (s *Synchronizer) applySnapshot(g gate, rows []Message) bool {
	applied, _ := s.update(g, func() bool {
		next := make([]Message, 0, len(rows)+1)
		seen := make(map[string]struct{}, len(rows))
		tokens := make(map[string]struct{})
		for _, m := range rows {
			if m.ConversationID != "" && m.ConversationID != s.conversationID {
				continue
			}
			if _, dup := seen[m.ID]; dup {
				continue
			}
			seen[m.ID] = struct{}{}
			if m.ClientToken != "" {
				tokens[m.ClientToken] = struct{}{}
			}
			m.Status = Confirmed
			next = append(next, m)
		}
		slices.SortStableFunc(next, func(a, b Message) int { return a.CreatedAt.Compare(b.CreatedAt) })

		for _, m := range s.messages {
			if m.Status != Pending {
				continue
			}
			if _, matched := tokens[m.ClientToken]; matched {
				delete(s.failed, m.ID)
				continue
			}
			next = insertOrdered(next, m)
		}

		if slices.EqualFunc(next, s.messages, sameMessage) {
			return false
		}
		s.messages = next
		return true
	})
	return applied
}

func (s *Synchronizer) applyConfirmed(g gate, m Message) (applied, changed bool) {
	if m.ConversationID != "" && m.ConversationID != s.conversationID {
		return false, false
	}
	m.Status = Confirmed
	return s.update(g, func() bool {
		if m.ClientToken != "" {
			if i := s.indexOf(func(x Message) bool { return x.Status == Pending && x.ClientToken == m.ClientToken }); i >= 0 {
				delete(s.failed, s.messages[i].ID)
				s.messages = slices.Delete(s.messages, i, i+1)
				if s.indexOf(func(x Message) bool { return x.ID == m.ID }) < 0 {
					s.messages = insertOrdered(s.messages, m)
				}
				return true
			}
		}
		if s.indexOf(func(x Message) bool { return x.ID == m.ID }) >= 0 {
			return false
		}
		s.messages = insertOrdered(s.messages, m)
		return true
	})
}

func (s *Synchronizer) send(ctx context.Context, g gate, senderID, content string) (Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return Message{}, ErrEmptyContent
	}

	token := uuid.NewString()
	pending := Message{
		ID:             ProvisionalPrefix + token,
		ConversationID: s.conversationID,
		SenderID:       senderID,
		Content:        content,
		Status:         Pending,
		ClientToken:    token,
	}
	applied, _ := s.update(g, func() bool {
		pending.CreatedAt = s.now()
		// Keep the optimistic entry at the tail even if the local clock lags
		// the server.
		if n := len(s.messages); n > 0 && pending.CreatedAt.Before(s.messages[n-1].CreatedAt) {
			pending.CreatedAt = s.messages[n-1].CreatedAt
		}
		s.messages = append(s.messages, pending)
		return true
	})
	if !applied {
		return Message{}, ErrStaleContext
	}

	s.inflight.Add(1)
	go s.deliver(context.WithoutCancel(ctx), g, pending)
	return pending, nil
}

func (s *Synchronizer) resend(ctx context.Context, g gate, provisionalID string) error {
	var (
		pending Message
		found   bool
	)
	applied, _ := s.update(g, func() bool {
		i := s.indexOf(func(x Message) bool { return x.ID == provisionalID && x.Status == Pending })
		if i < 0 {
			return false
		}
		if _, ok := s.failed[provisionalID]; !ok {
			return false
		}
		delete(s.failed, provisionalID)
		pending, found = s.messages[i], true
		return false
	})
	if !applied {
		return ErrStaleContext
	}
	if !found {
		return fmt.Errorf("failed message %s: %w", provisionalID, ErrNotFound)
	}

	s.inflight.Add(1)
	go s.deliver(context.WithoutCancel(ctx), g, pending)
	return nil
}

func (s *Synchronizer) deliver(ctx context.Context, g gate, pending Message) {
	defer s.inflight.Done()

	confirmed, err := s.backend.InsertMessage(ctx, Draft{
		ConversationID: pending.ConversationID,
		SenderID:       pending.SenderID,
		Content:        pending.Content,
		ClientToken:    pending.ClientToken,
	})
	if err != nil {
		s.logger.Warn("send failed, message stays pending",
			zap.Error(err),
			zap.String("conversation_id", s.conversationID),
			zap.String("provisional_id", pending.ID))
		s.markFailed(g, pending.ID, err)
		return
	}
	if confirmed.ClientToken == "" {
		confirmed.ClientToken = pending.ClientToken
	}
	if applied, _ := s.applyConfirmed(g, confirmed); !applied {
		s.logger.Debug("send confirmed after screen left", zap.String("message_id", confirmed.ID))
	}

	preview := Preview(confirmed.Content, s.previewLen)
	if err := s.backend.UpdateConversationSummary(ctx, s.conversationID, confirmed.CreatedAt, preview); err != nil {
		s.logger.Warn("failed to update conversation summary", zap.Error(err), zap.String("conversation_id", s.conversationID))
	}
}

// markFailed records the failure whether or not the screen is still focused,
// so a later activation can resend it. Only the notification is gated.
func (s *Synchronizer) markFailed(g gate, provisionalID string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed[provisionalID] = Transient("insert message", err)
	if s.onChange != nil && (g == nil || g()) {
		s.onChange(slices.Clone(s.messages))
	}
}

func (s *Synchronizer) indexOf(match func(Message) bool) int {
	return slices.IndexFunc(s.messages, match)
}

// insertOrdered places m after every entry with CreatedAt <= m.CreatedAt, so
// ties keep arrival order and appends stay at the tail.
func insertOrdered(list []Message, m Message) []Message {
	i := sort.Search(len(list), func(i int) bool { return list[i].CreatedAt.After(m.CreatedAt) })
	return slices.Insert(list, i, m)
}

func sameMessage(a, b Message) bool {
	return a.ID == b.ID && a.Status == b.Status && a.Read == b.Read &&
		a.Content == b.Content && a.CreatedAt.Equal(b.CreatedAt)
}
