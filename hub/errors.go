package hub

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownConnection    = errors.New("unknown connection")
	ErrNotAuthenticated     = errors.New("connection not authenticated")
	ErrAlreadyAuthenticated = errors.New("connection already authenticated")
	ErrInvalidRoom          = errors.New("invalid room")
	ErrAuthFailed           = errors.New("authentication failed")

	// ErrSlowConsumer is returned by a Sender whose outbound buffer is full.
	ErrSlowConsumer = errors.New("slow consumer")
	// ErrConnectionClosed is returned by a Sender that was already closed.
	ErrConnectionClosed = errors.New("connection closed")
)

// AuthError reports why a credential was rejected. It matches ErrAuthFailed
// under errors.Is.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("authentication failed: %s", e.Reason)
	}
	return fmt.Sprintf("authentication failed: %s: %v", e.Reason, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

func (e *AuthError) Is(target error) bool { return target == ErrAuthFailed }
