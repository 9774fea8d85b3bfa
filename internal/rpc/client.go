package rpc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/matheus3301/vivah/internal/backend"
	"github.com/matheus3301/vivah/internal/chat"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	grpcstatus "google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client is a backend.Service reached over gRPC.
type Client struct {
	conn   *grpc.ClientConn
	logger *zap.Logger
}

var _ backend.Service = (*Client)(nil)

// Dial connects to the daemon's Unix domain socket.
func Dial(socketPath string, logger *zap.Logger) (*Client, error) {
	conn, err := grpc.NewClient(
		"unix://"+socketPath,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("dial daemon: %w", err)
	}
	return NewClient(conn, logger), nil
}

// NewClient wraps an existing connection.
func NewClient(conn *grpc.ClientConn, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{conn: conn, logger: logger}
}

// Close closes the gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) call(ctx context.Context, method string, in *structpb.Struct) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, fullMethod(method), in, out); err != nil {
		return nil, fromStatus(method, err)
	}
	return out, nil
}

// PingResult describes a responsive daemon.
type PingResult struct {
	Status string
	// Since is when the daemon entered Status.
	Since  time.Time
	Uptime time.Duration
}

// Ping checks that the daemon is serving.
func (c *Client) Ping(ctx context.Context) (PingResult, error) {
	out, err := c.call(ctx, methodPing, newStruct(fields{}))
	if err != nil {
		return PingResult{}, err
	}
	return PingResult{
		Status: str(out, fStatus),
		Since:  parseTime(out, fSince),
		Uptime: time.Duration(num(out, "uptime_ms")) * time.Millisecond,
	}, nil
}

func (c *Client) FetchMessages(ctx context.Context, conversationID string, limit int) ([]chat.Message, error) {
	out, err := c.call(ctx, methodFetchMessages, newStruct(fields{
		fConversationID: stringValue(conversationID),
		fLimit:          structpb.NewNumberValue(float64(limit)),
	}))
	if err != nil {
		return nil, err
	}
	vals := list(out, fMessages)
	msgs := make([]chat.Message, 0, len(vals))
	for _, v := range vals {
		msgs = append(msgs, decodeMessage(v.GetStructValue()))
	}
	return msgs, nil
}

func (c *Client) InsertMessage(ctx context.Context, d chat.Draft) (chat.Message, error) {
	out, err := c.call(ctx, methodInsertMessage, encodeDraft(d))
	if err != nil {
		return chat.Message{}, err
	}
	return decodeMessage(sub(out, fMessage)), nil
}

func (c *Client) UpdateConversationSummary(ctx context.Context, conversationID string, lastMessageAt time.Time, preview string) error {
	_, err := c.call(ctx, methodUpdateConversationSummary, newStruct(fields{
		fConversationID: stringValue(conversationID),
		fLastMessageAt:  timeValue(lastMessageAt),
		fPreview:        stringValue(preview),
	}))
	return err
}

func (c *Client) MarkMessagesRead(ctx context.Context, conversationID, viewerID string) error {
	_, err := c.call(ctx, methodMarkMessagesRead, newStruct(fields{
		fConversationID: stringValue(conversationID),
		fViewerID:       stringValue(viewerID),
	}))
	return err
}

func (c *Client) FetchConversationsForViewer(ctx context.Context, viewerID string) ([]chat.ConversationDetail, error) {
	out, err := c.call(ctx, methodFetchConversationsForViewer, newStruct(fields{fViewerID: stringValue(viewerID)}))
	if err != nil {
		return nil, err
	}
	vals := list(out, fConversations)
	details := make([]chat.ConversationDetail, 0, len(vals))
	for _, v := range vals {
		details = append(details, decodeDetail(v.GetStructValue()))
	}
	return details, nil
}

func (c *Client) FetchConversation(ctx context.Context, conversationID string) (*chat.ConversationDetail, error) {
	out, err := c.call(ctx, methodFetchConversation, newStruct(fields{fConversationID: stringValue(conversationID)}))
	if err != nil {
		return nil, err
	}
	d := decodeDetail(sub(out, fConversation))
	return &d, nil
}

func (c *Client) UpsertProfile(ctx context.Context, p chat.Profile) error {
	_, err := c.call(ctx, methodUpsertProfile, newStruct(fields{fProfile: structValue(encodeProfile(&p))}))
	return err
}

func (c *Client) RequestConnection(ctx context.Context, senderID, receiverID string) (chat.Connection, error) {
	out, err := c.call(ctx, methodRequestConnection, newStruct(fields{
		fSenderID:   stringValue(senderID),
		fReceiverID: stringValue(receiverID),
	}))
	if err != nil {
		return chat.Connection{}, err
	}
	return *decodeConnection(sub(out, fConnection)), nil
}

func (c *Client) RespondConnection(ctx context.Context, connectionID string, state chat.ConnectionState) (chat.Connection, *chat.Conversation, error) {
	out, err := c.call(ctx, methodRespondConnection, newStruct(fields{
		fConnectionID: stringValue(connectionID),
		fState:        stringValue(string(state)),
	}))
	if err != nil {
		return chat.Connection{}, nil, err
	}
	conn := decodeConnection(sub(out, fConnection))
	if conn == nil {
		return chat.Connection{}, nil, fmt.Errorf("respond connection: empty reply")
	}
	return *conn, decodeConversation(sub(out, fConversation)), nil
}

func (c *Client) ListConnections(ctx context.Context, viewerID string, state chat.ConnectionState) ([]chat.ConnectionDetail, error) {
	out, err := c.call(ctx, methodListConnections, newStruct(fields{
		fViewerID: stringValue(viewerID),
		fState:    stringValue(string(state)),
	}))
	if err != nil {
		return nil, err
	}
	return decodeConnectionDetails(out), nil
}

func (c *Client) PendingRequests(ctx context.Context, viewerID string) ([]chat.ConnectionDetail, error) {
	out, err := c.call(ctx, methodPendingRequests, newStruct(fields{fViewerID: stringValue(viewerID)}))
	if err != nil {
		return nil, err
	}
	return decodeConnectionDetails(out), nil
}

func (c *Client) ConnectionBetween(ctx context.Context, a, b string) (chat.Connection, error) {
	out, err := c.call(ctx, methodConnectionBetween, newStruct(fields{
		fSenderID:   stringValue(a),
		fReceiverID: stringValue(b),
	}))
	if err != nil {
		return chat.Connection{}, err
	}
	conn := decodeConnection(sub(out, fConnection))
	if conn == nil {
		return chat.Connection{}, fmt.Errorf("connection between: empty reply")
	}
	return *conn, nil
}

type subscription struct {
	conversationID string
	cancel         context.CancelFunc
	done           chan struct{}
	once           sync.Once
}

func (s *subscription) ConversationID() string { return s.conversationID }

// SubscribeToInserts opens the server stream and waits for its SUBSCRIBED
// frame. A stream that breaks reports CHANNEL_ERROR; one ended by the server
// or by Unsubscribe reports CLOSED.
func (c *Client) SubscribeToInserts(ctx context.Context, conversationID string, onMessage func(chat.Message), onStatus func(chat.SubscriptionStatus)) (chat.SubscriptionHandle, error) {
	if onStatus == nil {
		onStatus = func(chat.SubscriptionStatus) {}
	}
	sctx, cancel := context.WithCancel(ctx)
	stream, err := c.conn.NewStream(sctx, &serviceDesc.Streams[0], fullMethod(streamSubscribeInserts))
	if err != nil {
		cancel()
		return nil, fromStatus(streamSubscribeInserts, err)
	}
	if err := stream.SendMsg(newStruct(fields{fConversationID: stringValue(conversationID)})); err != nil {
		cancel()
		return nil, fromStatus(streamSubscribeInserts, err)
	}
	if err := stream.CloseSend(); err != nil {
		cancel()
		return nil, fromStatus(streamSubscribeInserts, err)
	}

	first := new(structpb.Struct)
	if err := stream.RecvMsg(first); err != nil {
		cancel()
		return nil, fromStatus(streamSubscribeInserts, err)
	}
	onStatus(chat.SubscriptionStatus(str(first, fStatus)))

	handle := &subscription{conversationID: conversationID, cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(handle.done)
		for {
			frame := new(structpb.Struct)
			err := stream.RecvMsg(frame)
			if err != nil {
				onStatus(streamEndStatus(sctx, err))
				if sctx.Err() == nil && !errors.Is(err, io.EOF) {
					c.logger.Warn("insert stream broken", zap.String("conversation_id", conversationID), zap.Error(err))
				}
				return
			}
			if m := frameMessage(frame); m != nil {
				onMessage(*m)
			}
		}
	}()
	return handle, nil
}

func frameMessage(frame *structpb.Struct) *chat.Message {
	s := sub(frame, fMessage)
	if s == nil {
		return nil
	}
	m := decodeMessage(s)
	return &m
}

func streamEndStatus(ctx context.Context, err error) chat.SubscriptionStatus {
	switch {
	case ctx.Err() != nil, errors.Is(err, io.EOF):
		return chat.StatusClosed
	case grpcstatus.Code(err) == codes.DeadlineExceeded:
		return chat.StatusTimedOut
	default:
		return chat.StatusChannelError
	}
}

// Unsubscribe cancels the stream and waits for its last callback.
func (c *Client) Unsubscribe(h chat.SubscriptionHandle) error {
	sub, ok := h.(*subscription)
	if !ok {
		return fmt.Errorf("unsubscribe: unknown handle %T", h)
	}
	sub.once.Do(sub.cancel)
	<-sub.done
	return nil
}
