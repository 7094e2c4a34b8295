package poll

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/windlass-io/windlass/metrics"
)

// scriptedFetch returns statuses from the script in call order, repeating
// the last one once drained.
func scriptedFetch(script ...string) (FetchFunc, *int) {
	calls := new(int)
	fetch := func(_ context.Context, _ string) (string, error) {
		i := *calls
		*calls++
		if i >= len(script) {
			i = len(script) - 1
		}
		return script[i], nil
	}
	return fetch, calls
}

func classifyStatus(status string) Classification {
	switch status {
	case "resolved":
		return StatusResolved
	case "expired":
		return StatusExpired
	default:
		return StatusPending
	}
}

func fastOptions(maxAttempts int) Options {
	return Options{MaxAttempts: maxAttempts, Interval: time.Millisecond}
}

func TestWatch_ResolvesOnTerminalStatus(t *testing.T) {
	fetch, calls := scriptedFetch("pending", "pending", "resolved")

	status, err := Watch(context.Background(), "sub-1", fetch, classifyStatus, fastOptions(5))
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	if status != "resolved" {
		t.Errorf("expected resolved, got %q", status)
	}
	if *calls != 3 {
		t.Errorf("expected 3 fetches, got %d", *calls)
	}
}

func TestWatch_ExhaustsBudget(t *testing.T) {
	fetch, calls := scriptedFetch("pending")

	_, err := Watch(context.Background(), "sub-1", fetch, classifyStatus, fastOptions(5))
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
	// The budget bounds fetch calls exactly.
	if *calls != 5 {
		t.Errorf("expected exactly 5 fetches, got %d", *calls)
	}
}

func TestWatch_ExpiredFailsImmediately(t *testing.T) {
	fetch, calls := scriptedFetch("pending", "expired", "resolved")

	_, err := Watch(context.Background(), "sub-1", fetch, classifyStatus, fastOptions(5))
	if !errors.Is(err, ErrRemoteExpired) {
		t.Fatalf("expected ErrRemoteExpired, got %v", err)
	}
	// Expiry short-circuits: the remaining budget is not consumed.
	if *calls != 2 {
		t.Errorf("expected 2 fetches, got %d", *calls)
	}
}

func TestWatch_ExhaustedAndExpiredAreDistinct(t *testing.T) {
	if errors.Is(ErrExhausted, ErrRemoteExpired) || errors.Is(ErrRemoteExpired, ErrExhausted) {
		t.Fatal("exhausted and expired must never match each other")
	}
}

func TestWatch_FetchErrorsConsumeAttempts(t *testing.T) {
	calls := 0
	fetch := func(_ context.Context, _ string) (string, error) {
		calls++
		return "", errors.New("connection reset")
	}

	_, err := Watch(context.Background(), "sub-1", fetch, classifyStatus, fastOptions(3))
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 fetches, got %d", calls)
	}
	// The last fetch error is carried in the message for diagnosis.
	if !strings.Contains(err.Error(), "connection reset") {
		t.Errorf("expected last fetch error in message, got %v", err)
	}
}

func TestWatch_RecoversAfterFetchError(t *testing.T) {
	calls := 0
	fetch := func(_ context.Context, _ string) (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("transient")
		}
		return "resolved", nil
	}

	status, err := Watch(context.Background(), "sub-1", fetch, classifyStatus, fastOptions(3))
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	if status != "resolved" {
		t.Errorf("expected resolved, got %q", status)
	}
}

func TestWatch_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fetch := func(_ context.Context, _ string) (string, error) {
		cancel()
		return "pending", nil
	}

	_, err := Watch(ctx, "sub-1", fetch, classifyStatus, Options{MaxAttempts: 5, Interval: time.Minute})
	if err == nil || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
}

func TestWatch_DefaultsApplied(t *testing.T) {
	fetch, calls := scriptedFetch("resolved")

	// Zero options fall back to the stock policy; resolution on the first
	// tick keeps the test fast.
	if _, err := Watch(context.Background(), "sub-1", fetch, classifyStatus, Options{}); err != nil {
		t.Fatalf("watch: %v", err)
	}
	if *calls != 1 {
		t.Errorf("expected 1 fetch, got %d", *calls)
	}
}

func TestWatch_RecordsMetrics(t *testing.T) {
	collector := metrics.NewCollector("run-test", "")
	fetch, _ := scriptedFetch("pending", "resolved")

	opts := fastOptions(5)
	opts.Collector = collector
	if _, err := Watch(context.Background(), "sub-1", fetch, classifyStatus, opts); err != nil {
		t.Fatalf("watch: %v", err)
	}

	snap := collector.Snapshot()
	if snap.PollTicks != 2 {
		t.Errorf("expected 2 ticks, got %d", snap.PollTicks)
	}
	if snap.PollResolved != 1 {
		t.Errorf("expected 1 resolution, got %d", snap.PollResolved)
	}
}
