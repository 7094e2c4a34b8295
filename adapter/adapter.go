// Package adapter defines the event-bus adapter boundary.
//
// Adapters publish assessment completion notifications to downstream
// systems. The CLI owns adapter lifecycle; users provide configuration
// only.
package adapter

import "context"

// CompletionEvent is the payload published when an assessment completion
// run reaches a terminal state.
type CompletionEvent struct {
	EventType string `json:"event_type"` // always "assessment_completed"
	RunID     string `json:"run_id"`
	UnitID    string `json:"unit_id"`
	UserID    string `json:"user_id,omitempty"`
	Status    string `json:"status"` // completed, aborted
	Score     int    `json:"score"`
	TierLevel int    `json:"tier_level"`
	GapCount  int    `json:"gap_count"`
	Timestamp string `json:"timestamp"` // ISO 8601
	DurationMs int64 `json:"duration_ms"`
}

// EventTypeCompleted is the fixed EventType value of CompletionEvent.
const EventTypeCompleted = "assessment_completed"

// Adapter publishes completion events to a downstream system.
// Implementations must be safe for single-use per run.
type Adapter interface {
	// Publish sends a completion event to the downstream system.
	// Must respect context cancellation and deadlines.
	Publish(ctx context.Context, event *CompletionEvent) error

	// Close releases adapter resources.
	Close() error
}
