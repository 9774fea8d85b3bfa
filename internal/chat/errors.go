package chat

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a conversation, connection or profile
	// record is missing.
	ErrNotFound = errors.New("not found")
	// ErrStaleContext marks a result that arrived after the controller left
	// the Active state.
	ErrStaleContext = errors.New("stale context")
	// ErrMissingIdentity is returned by Enter when the viewer or conversation
	// identifier is empty.
	ErrMissingIdentity = errors.New("missing viewer or conversation id")
	// ErrEmptyContent is returned for whitespace-only message content.
	ErrEmptyContent = errors.New("empty message content")
)

// TransientError wraps a failed backend call that is recovered locally by a
// later poll tick or a user-initiated resend.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err as a TransientError unless it is nil or already a
// NotFound error.
func Transient(op string, err error) error {
	if err == nil || errors.Is(err, ErrNotFound) {
		return err
	}
	var te *TransientError
	if errors.As(err, &te) {
		return err
	}
	return &TransientError{Op: op, Err: err}
}

// IsTransient reports whether err is a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
