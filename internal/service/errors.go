// Package service implements the booking core: the showtime scheduler and
// the reservation ledger.  Failures carry an explicit kind so the HTTP layer
// can map them to status codes without string matching, and a stable code so
// clients can react programmatically.
package service

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a core failure.
type Kind int

const (
	// KindInvalidInput marks malformed or out-of-range request data.
	KindInvalidInput Kind = iota + 1
	// KindNotFound marks a missing referenced film, room, showtime or user.
	KindNotFound
	// KindConflict marks an overlap, capacity or per-user-film limit breach.
	KindConflict
	// KindInternal marks a store failure or broken configuration.
	KindInternal
	// KindUnavailable marks a timed-out store operation; safe to retry.
	KindUnavailable
)

// Error is the failure type returned by the scheduler and the ledger.
// Message is user-facing and includes actionable context (remaining seats,
// conflicting interval); it never embeds raw storage errors.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Code + ": " + e.Message }

// KindOf extracts the Kind from err, or zero when err is not a core Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func invalidInput(code, format string, args ...any) *Error {
	return &Error{Kind: KindInvalidInput, Code: code, Message: fmt.Sprintf(format, args...)}
}

func notFound(code, format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: fmt.Sprintf(format, args...)}
}

func conflict(code, format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: fmt.Sprintf(format, args...)}
}

func internal(code, format string, args ...any) *Error {
	return &Error{Kind: KindInternal, Code: code, Message: fmt.Sprintf(format, args...)}
}

// storeErr translates a raw repository error into a core Error.  Timeouts
// and cancellations become retryable Unavailable failures; everything else
// is a generic Internal failure so driver details never reach clients.
func storeErr(err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &Error{Kind: KindUnavailable, Code: "store_timeout", Message: "storage temporarily unavailable, retry later"}
	}
	return &Error{Kind: KindInternal, Code: "store_failure", Message: "storage failure"}
}
