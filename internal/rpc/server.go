package rpc

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/matheus3301/vivah/internal/backend"
	"github.com/matheus3301/vivah/internal/chat"
	"github.com/matheus3301/vivah/internal/status"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// streamBuffer bounds pushes queued for one subscriber stream. Overflow is
// dropped; clients recover through polling.
const streamBuffer = 64

// Server exposes a backend.Service as the vivah.v1.Backend gRPC service.
type Server struct {
	svc     backend.Service
	machine *status.Machine
	logger  *zap.Logger
	started time.Time
}

// NewServer creates a service handler. machine may be nil.
func NewServer(svc backend.Service, machine *status.Machine, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{svc: svc, machine: machine, logger: logger, started: time.Now()}
}

// Register attaches the service to g.
func (s *Server) Register(g *grpc.Server) {
	g.RegisterService(&serviceDesc, s)
}

func (s *Server) ping(_ context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	state, since := status.Serving, s.started
	if s.machine != nil {
		state, since = s.machine.Snapshot()
	}
	return newStruct(fields{
		fStatus:     stringValue(string(state)),
		fSince:      timeValue(since),
		"uptime_ms": structpb.NewNumberValue(float64(time.Since(s.started).Milliseconds())),
	}), nil
}

func (s *Server) fetchMessages(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	msgs, err := s.svc.FetchMessages(ctx, str(in, fConversationID), num(in, fLimit))
	if err != nil {
		return nil, toStatus(err)
	}
	items := make([]*structpb.Struct, 0, len(msgs))
	for _, m := range msgs {
		items = append(items, encodeMessage(m))
	}
	return newStruct(fields{fMessages: listValue(items)}), nil
}

func (s *Server) insertMessage(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	m, err := s.svc.InsertMessage(ctx, decodeDraft(in))
	if err != nil {
		return nil, toStatus(err)
	}
	return newStruct(fields{fMessage: structValue(encodeMessage(m))}), nil
}

func (s *Server) updateConversationSummary(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	err := s.svc.UpdateConversationSummary(ctx, str(in, fConversationID), parseTime(in, fLastMessageAt), str(in, fPreview))
	if err != nil {
		return nil, toStatus(err)
	}
	return newStruct(fields{}), nil
}

func (s *Server) markMessagesRead(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := s.svc.MarkMessagesRead(ctx, str(in, fConversationID), str(in, fViewerID)); err != nil {
		return nil, toStatus(err)
	}
	return newStruct(fields{}), nil
}

func (s *Server) fetchConversationsForViewer(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	list, err := s.svc.FetchConversationsForViewer(ctx, str(in, fViewerID))
	if err != nil {
		return nil, toStatus(err)
	}
	items := make([]*structpb.Struct, 0, len(list))
	for i := range list {
		items = append(items, encodeDetail(&list[i]))
	}
	return newStruct(fields{fConversations: listValue(items)}), nil
}

func (s *Server) fetchConversation(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	d, err := s.svc.FetchConversation(ctx, str(in, fConversationID))
	if err != nil {
		return nil, toStatus(err)
	}
	return newStruct(fields{fConversation: structValue(encodeDetail(d))}), nil
}

func (s *Server) upsertProfile(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	p := decodeProfile(sub(in, fProfile))
	if p == nil {
		p = &chat.Profile{}
	}
	if err := s.svc.UpsertProfile(ctx, *p); err != nil {
		return nil, toStatus(err)
	}
	return newStruct(fields{}), nil
}

func (s *Server) requestConnection(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	c, err := s.svc.RequestConnection(ctx, str(in, fSenderID), str(in, fReceiverID))
	if err != nil {
		return nil, toStatus(err)
	}
	return newStruct(fields{fConnection: structValue(encodeConnection(&c))}), nil
}

func (s *Server) respondConnection(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	c, conv, err := s.svc.RespondConnection(ctx, str(in, fConnectionID), chat.ConnectionState(str(in, fState)))
	if err != nil {
		return nil, toStatus(err)
	}
	return newStruct(fields{
		fConnection:   structValue(encodeConnection(&c)),
		fConversation: structValue(encodeConversation(conv)),
	}), nil
}

func (s *Server) listConnections(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	list, err := s.svc.ListConnections(ctx, str(in, fViewerID), chat.ConnectionState(str(in, fState)))
	if err != nil {
		return nil, toStatus(err)
	}
	return encodeConnectionDetails(list), nil
}

func (s *Server) pendingRequests(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	list, err := s.svc.PendingRequests(ctx, str(in, fViewerID))
	if err != nil {
		return nil, toStatus(err)
	}
	return encodeConnectionDetails(list), nil
}

func (s *Server) connectionBetween(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	c, err := s.svc.ConnectionBetween(ctx, str(in, fSenderID), str(in, fReceiverID))
	if err != nil {
		return nil, toStatus(err)
	}
	return newStruct(fields{fConnection: structValue(encodeConnection(&c))}), nil
}

// subscribeInsertsHandler streams a SUBSCRIBED status frame followed by one
// frame per inserted message until the client goes away.
func subscribeInsertsHandler(srv any, stream grpc.ServerStream) error {
	s := srv.(*Server)
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	convID := str(in, fConversationID)
	ctx := stream.Context()

	pushes := make(chan chat.Message, streamBuffer)
	h, err := s.svc.SubscribeToInserts(ctx, convID, func(m chat.Message) {
		select {
		case pushes <- m:
		default:
			s.logger.Warn("subscriber backlog full, dropping push",
				zap.String("conversation_id", convID), zap.String("msg_id", m.ID))
		}
	}, nil)
	if err != nil {
		return toStatus(err)
	}
	defer func() {
		if err := s.svc.Unsubscribe(h); err != nil {
			s.logger.Warn("unsubscribe failed", zap.Error(err))
		}
	}()

	subID := uuid.NewString()
	s.logger.Info("insert subscription opened", zap.String("conversation_id", convID), zap.String("subscription_id", subID))
	defer s.logger.Info("insert subscription closed", zap.String("subscription_id", subID))

	if err := stream.SendMsg(newStruct(fields{
		fStatus:           stringValue(string(chat.StatusSubscribed)),
		"subscription_id": stringValue(subID),
	})); err != nil {
		return err
	}

	for {
		select {
		case m := <-pushes:
			if err := stream.SendMsg(newStruct(fields{fMessage: structValue(encodeMessage(m))})); err != nil {
				return err
			}
		case <-ctx.Done():
			return nil
		}
	}
}
