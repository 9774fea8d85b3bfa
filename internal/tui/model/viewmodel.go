package model

import (
	"context"
	"sync"

	"github.com/matheus3301/vivah/internal/app"
	"github.com/matheus3301/vivah/internal/chat"
)

// ViewModel caches backend state for the screens and signals UI refreshes.
// Controller callbacks land here from background goroutines; the UI reads
// snapshots after a signal on RefreshCh.
type ViewModel struct {
	mu sync.RWMutex

	app  *app.Context
	ctrl *chat.Controller

	conversations []chat.ConversationDetail
	requests      []chat.ConnectionDetail
	activeID      string
	messages      []chat.Message
	header        chat.Header
	headerSet     bool

	refreshCh chan struct{}
}

// NewViewModel creates a view model for the acting viewer in ac.
func NewViewModel(ac *app.Context) *ViewModel {
	vm := &ViewModel{
		app:       ac,
		ctrl:      ac.NewController(),
		refreshCh: make(chan struct{}, 1),
	}
	vm.header = vm.ctrl.Header()
	vm.ctrl.SetOnMessages(vm.setMessages)
	vm.ctrl.SetOnHeader(vm.setHeader)
	return vm
}

// RefreshCh returns the channel that signals UI refresh.
func (vm *ViewModel) RefreshCh() <-chan struct{} {
	return vm.refreshCh
}

func (vm *ViewModel) signalRefresh() {
	select {
	case vm.refreshCh <- struct{}{}:
	default:
	}
}

// Viewer returns the acting profile id.
func (vm *ViewModel) Viewer() string {
	return vm.app.Viewer
}

// LoadConversations fetches the viewer's conversations.
func (vm *ViewModel) LoadConversations(ctx context.Context) error {
	list, err := vm.ctrl.Conversations(ctx, vm.app.Viewer)
	if err != nil {
		return err
	}
	vm.mu.Lock()
	vm.conversations = list
	vm.mu.Unlock()
	vm.signalRefresh()
	return nil
}

// Conversations returns a snapshot of the conversation list.
func (vm *ViewModel) Conversations() []chat.ConversationDetail {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.conversations
}

// ConversationByID looks up a loaded conversation.
func (vm *ViewModel) ConversationByID(id string) (chat.ConversationDetail, bool) {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	for _, d := range vm.conversations {
		if d.Conversation.ID == id {
			return d, true
		}
	}
	return chat.ConversationDetail{}, false
}

// UnreadTotal sums unread counts across the loaded conversations.
func (vm *ViewModel) UnreadTotal() int {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	n := 0
	for _, d := range vm.conversations {
		n += d.UnreadCount
	}
	return n
}

// Open focuses conversationID. Backend calls made for it are bound to ctx.
func (vm *ViewModel) Open(ctx context.Context, conversationID string) error {
	vm.mu.Lock()
	if vm.activeID != conversationID {
		vm.activeID = conversationID
		vm.messages = nil
	}
	vm.headerSet = false
	vm.mu.Unlock()
	if err := vm.ctrl.Enter(ctx, vm.app.Viewer, conversationID); err != nil {
		return err
	}
	msgs, h := vm.ctrl.Messages(), vm.ctrl.Header()

	// Callbacks may already have delivered newer state.
	vm.mu.Lock()
	if vm.messages == nil {
		vm.messages = msgs
	}
	if !vm.headerSet {
		vm.header = h
	}
	vm.mu.Unlock()
	vm.signalRefresh()
	return nil
}

// Close releases the open conversation's feed and timer.
func (vm *ViewModel) Close() {
	vm.ctrl.Exit()
}

// ActiveID returns the focused conversation, or empty.
func (vm *ViewModel) ActiveID() string {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.activeID
}

// Send posts content to the open conversation.
func (vm *ViewModel) Send(ctx context.Context, content string) error {
	_, err := vm.ctrl.Send(ctx, content)
	return err
}

// ResendLatestFailed retries the most recent failed message. It reports
// false when nothing failed.
func (vm *ViewModel) ResendLatestFailed(ctx context.Context) (bool, error) {
	msgs := vm.Messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Status == chat.Pending && vm.ctrl.Failed(msgs[i].ID) {
			return true, vm.ctrl.Resend(ctx, msgs[i].ID)
		}
	}
	return false, nil
}

// Failed reports whether a pending message failed to send.
func (vm *ViewModel) Failed(provisionalID string) bool {
	return vm.ctrl.Failed(provisionalID)
}

// Messages returns a snapshot of the open conversation, oldest first.
func (vm *ViewModel) Messages() []chat.Message {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.messages
}

// Header returns the counterpart display data of the open conversation.
func (vm *ViewModel) Header() chat.Header {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.header
}

// FeedStatus returns the realtime subscription status of the open
// conversation.
func (vm *ViewModel) FeedStatus() chat.SubscriptionStatus {
	if vm.ctrl.State() != chat.Active {
		return ""
	}
	return vm.ctrl.SubscriptionStatus()
}

// Connect sends a connection request from the viewer to receiverID.
func (vm *ViewModel) Connect(ctx context.Context, receiverID string) (chat.Connection, error) {
	return vm.app.Backend.RequestConnection(ctx, vm.app.Viewer, receiverID)
}

// Respond moves a connection to state and reloads both lists, since
// acceptance opens a conversation and removes the request.
func (vm *ViewModel) Respond(ctx context.Context, connectionID string, state chat.ConnectionState) (chat.Connection, error) {
	conn, _, err := vm.app.Backend.RespondConnection(ctx, connectionID, state)
	if err != nil {
		return chat.Connection{}, err
	}
	if err := vm.LoadRequests(ctx); err != nil {
		return conn, err
	}
	return conn, vm.LoadConversations(ctx)
}

// LoadRequests fetches the connection requests waiting for the viewer.
func (vm *ViewModel) LoadRequests(ctx context.Context) error {
	list, err := vm.app.Backend.PendingRequests(ctx, vm.app.Viewer)
	if err != nil {
		return err
	}
	vm.mu.Lock()
	vm.requests = list
	vm.mu.Unlock()
	vm.signalRefresh()
	return nil
}

// Requests returns a snapshot of the pending requests.
func (vm *ViewModel) Requests() []chat.ConnectionDetail {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.requests
}

func (vm *ViewModel) setMessages(msgs []chat.Message) {
	vm.mu.Lock()
	vm.messages = msgs
	vm.mu.Unlock()
	vm.signalRefresh()
}

func (vm *ViewModel) setHeader(h chat.Header) {
	vm.mu.Lock()
	vm.header = h
	vm.headerSet = true
	vm.mu.Unlock()
	vm.signalRefresh()
}
