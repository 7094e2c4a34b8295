package workflow

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/windlass-io/windlass/log"
	"github.com/windlass-io/windlass/metrics"
)

func testRunner(t *testing.T, stages []Stage) (*Runner, *metrics.Collector) {
	t.Helper()
	collector := metrics.NewCollector("run-test", "")
	logger := log.NewLogger("run-test", "").WithOutput(io.Discard)
	r, err := NewRunner("run-test", stages, logger, collector)
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	return r, collector
}

func okStage(name string, output any) Stage {
	return Stage{
		Name:      name,
		OnFailure: Abort(),
		Execute: func(context.Context, *Context) (any, error) {
			return output, nil
		},
	}
}

func failStage(name string, policy FailurePolicy) Stage {
	return Stage{
		Name:      name,
		OnFailure: policy,
		Execute: func(context.Context, *Context) (any, error) {
			return nil, errors.New(name + " failed")
		},
	}
}

func TestRun_CompletesInOrder(t *testing.T) {
	var order []string
	mk := func(name string) Stage {
		return Stage{
			Name:      name,
			OnFailure: Abort(),
			Execute: func(_ context.Context, _ *Context) (any, error) {
				order = append(order, name)
				return name + "-output", nil
			},
		}
	}

	r, collector := testRunner(t, []Stage{mk("a"), mk("b"), mk("c")})
	result, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if result.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s", result.Status)
	}
	if len(order) != 3 || order[0] != "a" || order[2] != "c" {
		t.Errorf("unexpected execution order: %v", order)
	}
	if keys := result.Context.Keys(); len(keys) != 3 {
		t.Errorf("expected 3 recorded outputs, got %v", keys)
	}
	if got, _ := result.Context.Get("b"); got != "b-output" {
		t.Errorf("expected b-output, got %v", got)
	}
	if collector.Snapshot().RunsCompleted != 1 {
		t.Error("expected completed run metric")
	}
}

func TestRun_AbortPolicy(t *testing.T) {
	r, collector := testRunner(t, []Stage{
		okStage("first", "ok"),
		failStage("fatal", Abort()),
		okStage("never", "unreached"),
	})

	result, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if result.Status != StatusAborted {
		t.Fatalf("expected aborted, got %s", result.Status)
	}
	if result.FailedStage != "fatal" || result.FailedIndex != 1 {
		t.Errorf("expected failure at fatal/1, got %s/%d", result.FailedStage, result.FailedIndex)
	}
	if _, ok := result.Context.Get("never"); ok {
		t.Error("stage after abort must not execute")
	}
	// Completed outputs survive the abort for diagnosis.
	if _, ok := result.Context.Get("first"); !ok {
		t.Error("expected first stage output preserved")
	}
	if collector.Snapshot().RunsAborted != 1 {
		t.Error("expected aborted run metric")
	}
}

func TestRun_ReportAndContinuePolicy(t *testing.T) {
	r, _ := testRunner(t, []Stage{
		failStage("best-effort", ReportAndContinue()),
		okStage("after", "ok"),
	})

	result, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if result.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s", result.Status)
	}
	diags := result.Context.Diagnostics()
	if len(diags) != 1 || diags[0].Stage != "best-effort" {
		t.Errorf("expected one diagnostic for best-effort, got %v", diags)
	}
	if _, ok := result.Context.Get("after"); !ok {
		t.Error("expected later stage to run")
	}
}

func TestRun_FallbackPolicy(t *testing.T) {
	r, collector := testRunner(t, []Stage{
		okStage("first", "ok"),
		failStage("checker", FallbackTo("rescue")),
		okStage("rescue", "rescued"),
	})

	result, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if result.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s", result.Status)
	}
	if got, _ := result.Context.Get("rescue"); got != "rescued" {
		t.Errorf("expected rescue output, got %v", got)
	}
	if len(result.Context.Diagnostics()) != 1 {
		t.Errorf("fallback records a diagnostic, got %v", result.Context.Diagnostics())
	}
	if collector.Snapshot().StageFallbacks != 1 {
		t.Error("expected fallback metric")
	}
}

func TestRun_StageReentryIsADefect(t *testing.T) {
	// A fallback that jumps backward would re-run an executed stage.
	r, _ := testRunner(t, []Stage{
		okStage("first", "ok"),
		failStage("looper", FallbackTo("first")),
	})

	if _, err := r.Run(context.Background()); err == nil {
		t.Fatal("expected run-level error for stage re-entry")
	}
}

func TestRun_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r, _ := testRunner(t, []Stage{
		{
			Name:      "canceler",
			OnFailure: Abort(),
			Execute: func(context.Context, *Context) (any, error) {
				cancel()
				return "ok", nil
			},
		},
		okStage("after", "unreached"),
	})

	if _, err := r.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation error, got %v", err)
	}
}

func TestNewRunner_ValidatesPipeline(t *testing.T) {
	logger := log.NewLogger("run-test", "").WithOutput(io.Discard)
	collector := metrics.NewCollector("run-test", "")

	cases := []struct {
		name   string
		stages []Stage
	}{
		{"empty", nil},
		{"duplicate names", []Stage{okStage("a", nil), okStage("a", nil)}},
		{"unknown fallback", []Stage{failStage("a", FallbackTo("missing"))}},
		{"missing execute", []Stage{{Name: "a"}}},
		{"missing name", []Stage{okStage("", nil)}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewRunner("run-test", tc.stages, logger, collector); err == nil {
				t.Error("expected construction error")
			}
		})
	}
}

func TestContext_AppendOnly(t *testing.T) {
	wc := NewContext()
	if err := wc.Put("k", 1); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := wc.Put("k", 2); !errors.Is(err, ErrKeyExists) {
		t.Fatalf("expected ErrKeyExists, got %v", err)
	}
	if v, _ := wc.Get("k"); v != 1 {
		t.Errorf("original value must survive, got %v", v)
	}
}

func TestContext_KeysInInsertionOrder(t *testing.T) {
	wc := NewContext()
	for _, k := range []string{"c", "a", "b"} {
		if err := wc.Put(k, k); err != nil {
			t.Fatalf("put %s: %v", k, err)
		}
	}
	keys := wc.Keys()
	if len(keys) != 3 || keys[0] != "c" || keys[1] != "a" || keys[2] != "b" {
		t.Errorf("expected insertion order, got %v", keys)
	}
}
