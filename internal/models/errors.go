package models

import (
	"errors"
	"fmt"
)

// The error taxonomy exposed to callers. Every failure mode of the
// coordination core maps to one of these; none of them is fatal to the core.

// ErrNotFound means the donation (or profile) id is unknown.
var ErrNotFound = errors.New("not found")

// ValidationError rejects malformed or logically inconsistent input at the
// boundary, e.g. a pickup window ending after the food expires.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// ConflictKind distinguishes which exclusivity race was lost.
type ConflictKind string

const (
	ConflictAlreadyClaimed  ConflictKind = "already_claimed"
	ConflictAlreadyAssigned ConflictKind = "already_assigned"
	ConflictStaleVersion    ConflictKind = "stale_version"
	ConflictCapacity        ConflictKind = "capacity_exceeded"
)

// ConflictError means the caller lost a race (claim, mission accept, or a
// concurrent writer bumped the version). Recoverable: refresh and retry.
type ConflictError struct {
	Kind ConflictKind
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict: %s", e.Kind)
}

// TransitionError means the requested event is not legal from the current
// status. Distinct from ConflictError: it indicates a caller bug or a stale
// client view, and must never be silently swallowed.
type TransitionError struct {
	From  Status
	Event string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid transition: event %q from status %q", e.Event, e.From)
}

// MissingPhotoError is the custody gate: pickup and delivery confirmations
// require photographic evidence.
type MissingPhotoError struct {
	Checkpoint string
}

func (e *MissingPhotoError) Error() string {
	return fmt.Sprintf("missing photo evidence for %s checkpoint", e.Checkpoint)
}

// TimeoutError wraps a dependent I/O deadline so callers can retry with
// backoff instead of hanging.
type TimeoutError struct {
	Op  string
	Err error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout during %s: %v", e.Op, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }
