package ptu

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the pan/tilt head protocol.
var (
	// ErrConnection indicates a socket setup or write failure. It is never
	// retried by the transport; the caller decides whether to reconnect.
	ErrConnection = errors.New("ptu: connection error")

	// ErrReplyTimeout indicates that no complete reply frame arrived within
	// the allotted window. The transport retries the exchange exactly once
	// (with a connection reset in between) before surfacing this error.
	ErrReplyTimeout = errors.New("ptu: reply timeout")

	// ErrMalformedReply indicates a well-framed reply whose payload failed
	// command- or query-specific validation. Never retried: the device gave
	// a definite answer, it was just the wrong one.
	ErrMalformedReply = errors.New("ptu: malformed reply")

	// ErrNotInitialized indicates an operation attempted before Initialize
	// succeeded. Purely a local precondition check; no I/O is performed.
	ErrNotInitialized = errors.New("ptu: head not initialized")

	// ErrInvalidTargetPosition indicates a requested angle outside the
	// allowed range, caught before any command is sent.
	ErrInvalidTargetPosition = errors.New("ptu: invalid target position")

	// ErrMoveVerification indicates that the post-move position query
	// disagrees with the intended target.
	ErrMoveVerification = errors.New("ptu: move verification failed")

	// ErrZeroResolution indicates a degree/step conversion attempted with a
	// non-positive resolution factor. The factors are learned from the
	// device during Initialize; hitting this error means initialization was
	// skipped or the device reported a bogus resolution.
	ErrZeroResolution = errors.New("ptu: resolution not positive")

	// ErrNotSupported indicates an operation the driver deliberately does
	// not implement (relative moves), as distinct from a runtime failure.
	ErrNotSupported = errors.New("ptu: operation not supported")
)

// AxisMismatch records one axis whose post-move position differs from the
// intended target. Positions are in device steps.
type AxisMismatch struct {
	Axis string
	Want int
	Got  int
}

func (m AxisMismatch) String() string {
	return fmt.Sprintf("target %s position is %d but current position is %d", m.Axis, m.Want, m.Got)
}

// MoveVerificationError reports every targeted axis that failed post-move
// verification. Axes that were not targeted by the move are never compared.
type MoveVerificationError struct {
	Mismatches []AxisMismatch
}

func (e *MoveVerificationError) Error() string {
	parts := make([]string, 0, len(e.Mismatches))
	for _, m := range e.Mismatches {
		parts = append(parts, m.String())
	}

	return "ptu: move verification failed: " + strings.Join(parts, ", ")
}

// Unwrap makes the error match ErrMoveVerification via errors.Is.
func (e *MoveVerificationError) Unwrap() error { return ErrMoveVerification }
