package apiclient

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionExpired is returned when the backend rejects the bearer token.
	ErrSessionExpired = errors.New("session expired")
	// ErrTransportUnavailable covers connectivity failures, timeouts and an open circuit.
	ErrTransportUnavailable = errors.New("transport unavailable")
)

// Operation names double as the user-facing description of a failed call.
const (
	OpLogin        = "log in"
	OpFetch        = "fetch washrooms"
	OpOccupy       = "occupy toilet"
	OpRelease      = "release toilet"
	OpJoinWaitlist = "join waitlist"
	OpExtend       = "extend time"
	OpRegisterPush = "register push token"
)

// RequestFailedError is any non-2xx response other than an authentication
// failure, or a 2xx response whose body could not be decoded.
type RequestFailedError struct {
	Operation  string
	StatusCode int
	Err        error
}

func (e *RequestFailedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to %s (status %d): %v", e.Operation, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("failed to %s (status %d)", e.Operation, e.StatusCode)
}

func (e *RequestFailedError) Unwrap() error {
	return e.Err
}

func transportError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrTransportUnavailable, err)
}
