// Remote error classification.
//
// Sentinel errors and a wrapper type let callers use errors.Is/errors.As
// for typed assertions rather than string matching on transport failures.
package remote

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for remote failure classification.
// Use errors.Is(err, ErrXxx) for typed assertions.
var (
	// ErrNotFound indicates the target resource does not exist (404).
	ErrNotFound = errors.New("not found")

	// ErrThrottled indicates rate limiting (429).
	ErrThrottled = errors.New("rate limited")

	// ErrAuth indicates authentication failure (missing or expired token).
	ErrAuth = errors.New("authentication failed")

	// ErrAccessDenied indicates authorization failure (valid token, no permission).
	ErrAccessDenied = errors.New("access denied")

	// ErrTimeout indicates an operation timed out.
	ErrTimeout = errors.New("operation timed out")

	// ErrNetwork indicates a network-level failure (connection refused, DNS).
	ErrNetwork = errors.New("network error")

	// ErrRemote indicates an unclassified remote failure.
	ErrRemote = errors.New("remote error")
)

// StatusError is returned for non-2xx HTTP responses.
// Carrying the status code lets callers distinguish retriable (5xx)
// from non-retriable (4xx) failures.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
	}
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// Retriable reports whether the response class permits a retry.
func (e *StatusError) Retriable() bool {
	return e.Code >= 500
}

// CallError wraps an underlying error with remote call classification.
// It preserves the original error in the chain for errors.As inspection.
type CallError struct {
	// Kind is the sentinel error for classification (e.g. ErrThrottled).
	Kind error
	// Op is the facade operation that failed (e.g. "upload_chunk").
	Op string
	// Err is the underlying error.
	Err error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As chain traversal.
func (e *CallError) Unwrap() error {
	return e.Err
}

// Is reports whether the error matches the target sentinel.
func (e *CallError) Is(target error) bool {
	return errors.Is(e.Kind, target)
}

// WrapCallError classifies and wraps a facade call error.
// Returns nil if err is nil.
func WrapCallError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &CallError{
		Kind: classify(err),
		Op:   op,
		Err:  err,
	}
}

// classify determines the sentinel for the given error.
// Status codes are checked first via errors.As; the message-pattern
// fallback covers transport errors surfaced as plain strings.
func classify(err error) error {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.Code == 404:
			return ErrNotFound
		case statusErr.Code == 429:
			return ErrThrottled
		case statusErr.Code == 401:
			return ErrAuth
		case statusErr.Code == 403:
			return ErrAccessDenied
		default:
			return ErrRemote
		}
	}

	var timeoutErr interface{ Timeout() bool }
	if errors.As(err, &timeoutErr) && timeoutErr.Timeout() {
		return ErrTimeout
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, "timeout", "timed out", "deadline exceeded"):
		return ErrTimeout
	case containsAny(msg, "connection refused", "no route to host", "network unreachable", "dial tcp", "no such host"):
		return ErrNetwork
	default:
		return ErrRemote
	}
}

// containsAny checks if s contains any of the substrings.
func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
