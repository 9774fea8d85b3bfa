// Package rpc carries the chat backend over gRPC. The service is declared by
// hand and exchanges google.protobuf.Struct messages, so no generated code is
// needed on either side.
package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "vivah.v1.Backend"

const (
	methodPing                        = "Ping"
	methodFetchMessages               = "FetchMessages"
	methodInsertMessage               = "InsertMessage"
	methodUpdateConversationSummary   = "UpdateConversationSummary"
	methodMarkMessagesRead            = "MarkMessagesRead"
	methodFetchConversationsForViewer = "FetchConversationsForViewer"
	methodFetchConversation           = "FetchConversation"
	methodUpsertProfile               = "UpsertProfile"
	methodRequestConnection           = "RequestConnection"
	methodRespondConnection           = "RespondConnection"
	methodListConnections             = "ListConnections"
	methodPendingRequests             = "PendingRequests"
	methodConnectionBetween           = "ConnectionBetween"
	streamSubscribeInserts            = "SubscribeInserts"
)

func fullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

// backendServer is the handler type checked by grpc.Server.RegisterService.
type backendServer interface {
	ping(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

type unaryFunc func(s *Server, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)

func unary(name string, fn unaryFunc) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(*Server)
			if interceptor == nil {
				return fn(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return fn(s, ctx, req.(*structpb.Struct))
			})
		},
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*backendServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(methodPing, (*Server).ping),
		unary(methodFetchMessages, (*Server).fetchMessages),
		unary(methodInsertMessage, (*Server).insertMessage),
		unary(methodUpdateConversationSummary, (*Server).updateConversationSummary),
		unary(methodMarkMessagesRead, (*Server).markMessagesRead),
		unary(methodFetchConversationsForViewer, (*Server).fetchConversationsForViewer),
		unary(methodFetchConversation, (*Server).fetchConversation),
		unary(methodUpsertProfile, (*Server).upsertProfile),
		unary(methodRequestConnection, (*Server).requestConnection),
		unary(methodRespondConnection, (*Server).respondConnection),
		unary(methodListConnections, (*Server).listConnections),
		unary(methodPendingRequests, (*Server).pendingRequests),
		unary(methodConnectionBetween, (*Server).connectionBetween),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    streamSubscribeInserts,
			Handler:       subscribeInsertsHandler,
			ServerStreams: true,
		},
	},
	Metadata: "vivah/v1/backend.proto",
}
