// Package poll provides a bounded, constant-interval reconciliation
// poller for eventually-consistent remote status fields.
//
// Watch reads a remote status once per tick until a terminal value is
// observed or the attempt budget is exhausted. Each invocation is
// independent: no state is shared across concurrent watches, and
// abandonment is plain context cancellation.
package poll

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/windlass-io/windlass/metrics"
)

// Default policy observed in this domain. Constant interval, bounded
// count: polling here reconciles a handful of user-visible states, not a
// long-lived subscription, so backoff buys nothing.
const (
	DefaultMaxAttempts = 5
	DefaultInterval    = 2000 * time.Millisecond
)

// Sentinel errors. Exhausted and RemoteExpired demand different corrective
// actions (retry polling vs re-initiate the watched operation) and must
// never be collapsed into one generic failure.
var (
	// ErrExhausted reports that the attempt budget ran out with the
	// status still non-terminal. The subject may still resolve; the
	// caller can watch again.
	ErrExhausted = errors.New("poll attempts exhausted")

	// ErrRemoteExpired reports that the remote invalidated the watched
	// subject. Watching the same handle again is pointless; the caller
	// must restart the higher-level operation.
	ErrRemoteExpired = errors.New("remote subject expired")
)

// Classification is the verdict of one observed status.
type Classification int

const (
	// StatusPending means keep polling.
	StatusPending Classification = iota
	// StatusResolved means the status is terminal and the watch succeeds.
	StatusResolved
	// StatusExpired means the remote invalidated the subject; the watch
	// fails immediately without consuming the remaining budget.
	StatusExpired
)

// FetchFunc reads the remote status of a subject. One network read, no writes.
type FetchFunc func(ctx context.Context, subjectID string) (string, error)

// ClassifyFunc maps an observed status onto a Classification.
type ClassifyFunc func(status string) Classification

// Options configures a watch.
type Options struct {
	// MaxAttempts bounds the number of fetch calls (default DefaultMaxAttempts).
	MaxAttempts int
	// Interval is the fixed delay between attempts (default DefaultInterval).
	Interval time.Duration
	// Collector, when set, records poll metrics. Nil-safe.
	Collector *metrics.Collector
}

// Watch polls the subject until classify reports a terminal verdict or the
// budget runs out. Returns the resolved status value on success.
//
// Fetch errors count as a consumed attempt: a flaky read and a pending
// status spend budget the same way, keeping the total call bound exact.
func Watch(ctx context.Context, subjectID string, fetch FetchFunc, classify ClassifyFunc, opts Options) (string, error) {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}

	var lastErr error
	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("watch canceled: %w", err)
		}

		opts.Collector.IncPollTick()
		status, err := fetch(ctx, subjectID)
		if err != nil {
			lastErr = err
		} else {
			switch classify(status) {
			case StatusResolved:
				opts.Collector.IncPollResolved()
				return status, nil
			case StatusExpired:
				opts.Collector.IncPollExpired()
				return "", fmt.Errorf("%w: subject %s reported %q", ErrRemoteExpired, subjectID, status)
			case StatusPending:
				lastErr = nil
			}
		}

		if attempt == opts.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("watch canceled: %w", ctx.Err())
		case <-time.After(opts.Interval):
		}
	}

	opts.Collector.IncPollExhausted()
	if lastErr != nil {
		return "", fmt.Errorf("%w after %d attempts (last error: %v)", ErrExhausted, opts.MaxAttempts, lastErr)
	}
	return "", fmt.Errorf("%w after %d attempts", ErrExhausted, opts.MaxAttempts)
}
