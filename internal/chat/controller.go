package chat

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// DefaultPollInterval is the poll fallback period while a conversation is open.
const DefaultPollInterval = 4 * time.Second

// State is the focus state of a conversation screen.
type State string

const (
	Idle   State = "IDLE"
	Active State = "ACTIVE"
)

// validTransitions defines allowed state transitions. Active -> Active is a
// refocus that replaces the stale subscription.
var validTransitions = map[State][]State{
	Idle:   {Active},
	Active: {Active, Idle},
}

// ControllerConfig tunes a Controller. Zero values select the defaults.
type ControllerConfig struct {
	PollInterval        time.Duration
	HistoryLimit        int
	PreviewLength       int
	PlaceholderName     string
	PlaceholderPhotoURL string
}

// Controller binds one conversation screen's realtime subscription and poll
// timer to its focus state. Enter and Exit are idempotent and may be called
// from any host lifecycle hook.
type Controller struct {
	backend  Backend
	resolver *Resolver
	cfg      ControllerConfig
	logger   *zap.Logger

	onMessages func([]Message)
	onHeader   func(Header)

	mu             sync.Mutex
	state          State
	viewerID       string
	conversationID string
	sync           *Synchronizer
	sub            SubscriptionHandle
	stopPoll       context.CancelFunc
	gen            uint64

	// live holds the generation whose results may be applied; 0 when Idle.
	live atomic.Uint64

	hmu       sync.Mutex
	header    Header
	subStatus SubscriptionStatus
}

// NewController creates an Idle controller.
func NewController(b Backend, cfg ControllerConfig, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultHistoryLimit
	}
	if cfg.PreviewLength <= 0 {
		cfg.PreviewLength = DefaultPreviewLength
	}
	resolver := NewResolver(b, cfg.PlaceholderName, cfg.PlaceholderPhotoURL)
	return &Controller{
		backend:  b,
		resolver: resolver,
		cfg:      cfg,
		logger:   logger,
		state:    Idle,
		header:   resolver.Placeholder(),
	}
}

// SetOnMessages sets the callback receiving the list after every change. It
// takes effect on the next Enter of a new conversation and must not call back
// into the Controller.
func (c *Controller) SetOnMessages(fn func([]Message)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onMessages = fn
}

// SetOnHeader sets the callback receiving the resolved header.
func (c *Controller) SetOnHeader(fn func(Header)) {
	c.hmu.Lock()
	defer c.hmu.Unlock()
	c.onHeader = fn
}

// State returns the current focus state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Header returns the last resolved header, or the placeholder.
func (c *Controller) Header() Header {
	c.hmu.Lock()
	defer c.hmu.Unlock()
	return c.header
}

// SubscriptionStatus returns the last status reported by the realtime feed.
func (c *Controller) SubscriptionStatus() SubscriptionStatus {
	c.hmu.Lock()
	defer c.hmu.Unlock()
	return c.subStatus
}

// Messages returns the current list of the open conversation.
func (c *Controller) Messages() []Message {
	c.mu.Lock()
	s := c.sync
	c.mu.Unlock()
	if s == nil {
		return nil
	}
	return s.Messages()
}

// Failed reports whether a pending message of the open conversation failed
// to send and can be resent.
func (c *Controller) Failed(provisionalID string) bool {
	c.mu.Lock()
	s := c.sync
	c.mu.Unlock()
	return s != nil && s.Failed(provisionalID)
}

// Enter activates the controller for a conversation: it opens one realtime
// subscription, starts one poll timer and, in the background, resolves the
// header, loads the initial messages and marks them read. A stale
// subscription and timer from a previous activation are released first.
// ctx bounds every backend call made for this activation. Missing
// identifiers return ErrMissingIdentity and leave the controller Idle.
func (c *Controller) Enter(ctx context.Context, viewerID, conversationID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if viewerID == "" || conversationID == "" {
		c.logger.Warn("conversation focused without identifiers",
			zap.String("viewer_id", viewerID), zap.String("conversation_id", conversationID))
		// A previous activation must not keep running behind the rejected one.
		if c.state == Active {
			c.teardownLocked()
			_ = c.transitionLocked(Idle)
		}
		return ErrMissingIdentity
	}

	if c.state == Active {
		c.teardownLocked()
	}
	if err := c.transitionLocked(Active); err != nil {
		return err
	}

	if c.sync == nil || c.conversationID != conversationID || c.viewerID != viewerID {
		c.sync = NewSynchronizer(c.backend, conversationID,
			WithLogger(c.logger),
			WithPreviewLength(c.cfg.PreviewLength),
			WithOnChange(c.onMessages))
		c.hmu.Lock()
		c.header = c.resolver.Placeholder()
		c.hmu.Unlock()
	}
	c.viewerID, c.conversationID = viewerID, conversationID

	c.gen++
	gen := c.gen
	c.live.Store(gen)
	g := c.gateFor(gen)
	s := c.sync

	handle, err := c.backend.SubscribeToInserts(ctx, conversationID,
		func(m Message) { c.handlePush(ctx, g, s, viewerID, m) },
		func(st SubscriptionStatus) { c.handleStatus(g, conversationID, st) })
	if err != nil {
		c.logger.Warn("realtime subscribe failed, relying on poll", zap.Error(err), zap.String("conversation_id", conversationID))
	} else {
		c.sub = handle
	}

	scope, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.stopPoll = cancel
	go c.pollLoop(scope, ctx, g, s)
	go c.activate(ctx, g, s, viewerID, conversationID)

	c.logger.Info("conversation active", zap.String("conversation_id", conversationID), zap.Uint64("generation", gen))
	return nil
}

// Exit releases the subscription and poll timer. Results of calls still in
// flight are discarded once Exit returns.
func (c *Controller) Exit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Idle {
		return
	}
	c.teardownLocked()
	_ = c.transitionLocked(Idle)
	c.logger.Info("conversation idle", zap.String("conversation_id", c.conversationID))
}

// Send optimistically appends content from the viewer and inserts it in the
// background.
func (c *Controller) Send(ctx context.Context, content string) (Message, error) {
	s, viewerID, g, err := c.current()
	if err != nil {
		return Message{}, err
	}
	return s.send(ctx, g, viewerID, content)
}

// Resend retries a pending message whose send failed.
func (c *Controller) Resend(ctx context.Context, provisionalID string) error {
	s, _, g, err := c.current()
	if err != nil {
		return err
	}
	return s.resend(ctx, g, provisionalID)
}

// Conversations lists the viewer's conversations, newest activity first.
func (c *Controller) Conversations(ctx context.Context, viewerID string) ([]ConversationDetail, error) {
	return c.resolver.ListConversations(ctx, viewerID)
}

func (c *Controller) current() (*Synchronizer, string, gate, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Active {
		return nil, "", nil, ErrStaleContext
	}
	return c.sync, c.viewerID, c.gateFor(c.gen), nil
}

func (c *Controller) gateFor(gen uint64) gate {
	return func() bool { return c.live.Load() == gen }
}

func (c *Controller) transitionLocked(to State) error {
	if !slices.Contains(validTransitions[c.state], to) {
		return fmt.Errorf("invalid transition from %s to %s", c.state, to)
	}
	c.state = to
	return nil
}

func (c *Controller) teardownLocked() {
	c.live.Store(0)
	if c.stopPoll != nil {
		c.stopPoll()
		c.stopPoll = nil
	}
	if c.sub != nil {
		if err := c.backend.Unsubscribe(c.sub); err != nil {
			c.logger.Warn("unsubscribe failed", zap.Error(err), zap.String("conversation_id", c.conversationID))
		}
		c.sub = nil
	}
	// Wait out updates that passed the gate before live was cleared.
	if c.sync != nil {
		c.sync.barrier()
	}
	c.hmu.Lock()
	c.hmu.Unlock()
}

func (c *Controller) activate(ctx context.Context, g gate, s *Synchronizer, viewerID, conversationID string) {
	h, err := c.resolver.ResolveHeader(ctx, viewerID, conversationID)
	switch {
	case errors.Is(err, ErrNotFound):
		c.logger.Warn("conversation header not found, using placeholder", zap.String("conversation_id", conversationID))
		h = c.resolver.Placeholder()
	case err != nil:
		c.logger.Warn("resolve header failed", zap.Error(err), zap.String("conversation_id", conversationID))
		h = c.resolver.Placeholder()
	}
	c.setHeader(g, h)

	rows, err := s.Fetch(ctx, c.cfg.HistoryLimit)
	if err != nil {
		c.logger.Warn("initial load failed, poll will retry", zap.Error(err), zap.String("conversation_id", conversationID))
	} else if !s.applySnapshot(g, rows) {
		c.logger.Debug("initial load discarded", zap.String("conversation_id", conversationID))
		return
	}

	if g() {
		c.markRead(ctx, conversationID, viewerID)
	}
}

func (c *Controller) pollLoop(scope, ctx context.Context, g gate, s *Synchronizer) {
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rows, err := s.Fetch(ctx, c.cfg.HistoryLimit)
			if err != nil {
				c.logger.Warn("poll failed", zap.Error(err), zap.String("conversation_id", s.ConversationID()))
				continue
			}
			if !s.applySnapshot(g, rows) {
				return
			}
		case <-scope.Done():
			return
		}
	}
}

func (c *Controller) handlePush(ctx context.Context, g gate, s *Synchronizer, viewerID string, m Message) {
	if !g() || m.ConversationID != s.ConversationID() {
		return
	}
	if applied, _ := s.applyConfirmed(g, m); !applied && !g() {
		return
	}
	if m.SenderID != viewerID {
		c.markRead(ctx, s.ConversationID(), viewerID)
	}
}

func (c *Controller) handleStatus(g gate, conversationID string, st SubscriptionStatus) {
	c.hmu.Lock()
	if g() {
		c.subStatus = st
	}
	c.hmu.Unlock()

	switch st {
	case StatusChannelError:
		c.logger.Error("realtime channel error", zap.String("conversation_id", conversationID))
	case StatusTimedOut:
		c.logger.Warn("realtime channel timed out", zap.String("conversation_id", conversationID))
	default:
		c.logger.Info("realtime status", zap.String("conversation_id", conversationID), zap.String("status", string(st)))
	}
}

func (c *Controller) setHeader(g gate, h Header) {
	c.hmu.Lock()
	defer c.hmu.Unlock()
	if !g() {
		return
	}
	c.header = h
	if c.onHeader != nil {
		c.onHeader(h)
	}
}

func (c *Controller) markRead(ctx context.Context, conversationID, viewerID string) {
	go func() {
		if err := c.backend.MarkMessagesRead(ctx, conversationID, viewerID); err != nil {
			c.logger.Warn("mark read failed", zap.Error(err), zap.String("conversation_id", conversationID))
		}
	}()
}
