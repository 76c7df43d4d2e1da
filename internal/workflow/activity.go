package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/gastown/gtr/internal/gterr"
)

// ActivityFunc performs one unit of side-effecting work (spawn a tmux
// session, run git, call a plugin). It's the only place a workflow may
// touch the outside world; everything else in a Func must go through
// Context.
type ActivityFunc func(ctx context.Context) (interface{}, error)

// ActivityOptions configures how ExecuteActivity retries and bounds an
// activity call.
type ActivityOptions struct {
	// StartToCloseTimeout bounds a single attempt. Zero means no bound.
	StartToCloseTimeout time.Duration
	// MaxAttempts bounds retries of a failed, retryable attempt. Zero or
	// one means no retry.
	MaxAttempts int
	// InitialBackoff is the delay before the first retry; it doubles on
	// each subsequent attempt.
	InitialBackoff time.Duration
}

// DefaultActivityOptions is a sane baseline: one attempt, no timeout.
// Callers doing anything that can transiently fail should set
// MaxAttempts explicitly.
var DefaultActivityOptions = ActivityOptions{MaxAttempts: 1}

// ExecuteActivity runs fn with the configured timeout and retry policy.
// A failure wrapped with gterr.NonRetryable short-circuits the retry loop
// immediately regardless of remaining attempts.
func (c *Context) ExecuteActivity(name string, fn ActivityFunc, opts ActivityOptions) (interface{}, error) {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 1
	}
	backoff := opts.InitialBackoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}

	var lastErr error
	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		result, err := c.runOnce(fn, opts.StartToCloseTimeout)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if gterr.IsNonRetryable(err) {
			return nil, fmt.Errorf("activity %s: %w", name, err)
		}
		if attempt == opts.MaxAttempts {
			break
		}
		if !c.Sleep(backoff) {
			return nil, fmt.Errorf("activity %s: workflow stopped during retry backoff", name)
		}
		backoff *= 2
	}
	return nil, fmt.Errorf("activity %s failed after %d attempts: %w", name, opts.MaxAttempts, lastErr)
}

func (c *Context) runOnce(fn ActivityFunc, timeout time.Duration) (interface{}, error) {
	actx := c.stdctx
	if timeout > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeout(actx, timeout)
		defer cancel()
	}
	return fn(actx)
}
