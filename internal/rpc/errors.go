package rpc

import (
	"context"
	"errors"

	"github.com/matheus3301/vivah/internal/backend"
	"github.com/matheus3301/vivah/internal/chat"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

const errorDomain = "vivah"

// reasons pairs sentinel errors with their wire reason and status code.
var reasons = []struct {
	err    error
	reason string
	code   codes.Code
}{
	{chat.ErrNotFound, "NOT_FOUND", codes.NotFound},
	{chat.ErrEmptyContent, "EMPTY_CONTENT", codes.InvalidArgument},
	{chat.ErrMissingIdentity, "MISSING_IDENTITY", codes.InvalidArgument},
	{backend.ErrInvalidState, "INVALID_STATE", codes.InvalidArgument},
	{backend.ErrConnectionExists, "CONNECTION_EXISTS", codes.AlreadyExists},
}

// toStatus converts a backend error into a gRPC status error carrying an
// ErrorInfo detail for known sentinels.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := grpcstatus.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, context.Canceled):
		return grpcstatus.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return grpcstatus.Error(codes.DeadlineExceeded, err.Error())
	}
	for _, r := range reasons {
		if !errors.Is(err, r.err) {
			continue
		}
		st, detailErr := grpcstatus.New(r.code, err.Error()).WithDetails(&errdetails.ErrorInfo{
			Reason: r.reason,
			Domain: errorDomain,
		})
		if detailErr != nil {
			return grpcstatus.Error(r.code, err.Error())
		}
		return st.Err()
	}
	return grpcstatus.Error(codes.Internal, err.Error())
}

// fromStatus converts a gRPC error back into the matching sentinel. Errors
// without a known reason are reported as transient.
func fromStatus(op string, err error) error {
	if err == nil {
		return nil
	}
	st, ok := grpcstatus.FromError(err)
	if !ok {
		return chat.Transient(op, err)
	}
	for _, d := range st.Details() {
		info, ok := d.(*errdetails.ErrorInfo)
		if !ok || info.GetDomain() != errorDomain {
			continue
		}
		for _, r := range reasons {
			if r.reason == info.GetReason() {
				return &remoteError{sentinel: r.err, msg: st.Message()}
			}
		}
	}
	if st.Code() == codes.NotFound {
		return &remoteError{sentinel: chat.ErrNotFound, msg: st.Message()}
	}
	return chat.Transient(op, err)
}

// remoteError preserves the server's message while matching its sentinel
// with errors.Is.
type remoteError struct {
	sentinel error
	msg      string
}

func (e *remoteError) Error() string { return e.msg }
func (e *remoteError) Unwrap() error { return e.sentinel }
