// Package gterr defines the sentinel error categories shared by the
// workflow engine and its activities. Use errors.Is against these
// sentinels, and fmt.Errorf("...: %w", ErrX) to wrap them with context.
package gterr

import (
	"errors"
	"fmt"
)

// Category sentinels. Activities and workflows wrap one of these with
// %w so callers can classify a failure with errors.Is regardless of the
// specific message attached.
var (
	ErrConfigNotFound    = errors.New("config not found")
	ErrConfigParse       = errors.New("config parse error")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrAgentNotFound     = errors.New("agent not found")
	ErrWorkItemNotFound  = errors.New("work item not found")
	ErrConvoyNotFound    = errors.New("convoy not found")
	ErrActivityFailed    = errors.New("activity failed")
	ErrNonRetryable      = errors.New("non-retryable error")
)

// NotFound wraps ErrAgentNotFound/ErrWorkItemNotFound/ErrConvoyNotFound
// style lookups with the identifier that was missing.
func NotFound(category error, id string) error {
	return fmt.Errorf("%s: %w", id, category)
}

// InvalidTransition reports an illegal state-machine move, naming both the
// rejected transition and the state it was attempted from.
func InvalidTransition(from, event string) error {
	return fmt.Errorf("cannot apply %q from state %q: %w", event, from, ErrInvalidTransition)
}

// NonRetryable marks err as terminal: activity callers must not retry it.
// Mirrors the reference implementation's distinction between transient
// failures (retried by the engine) and permanent ones (fail the workflow).
func NonRetryable(err error) error {
	return fmt.Errorf("%w: %s", ErrNonRetryable, err)
}

// IsNonRetryable reports whether err (or anything it wraps) was marked
// non-retryable via NonRetryable.
func IsNonRetryable(err error) bool {
	return errors.Is(err, ErrNonRetryable)
}
