// Package metrics provides per-process metrics collection for the
// orchestration core.
//
// The Collector accumulates counters across uploads, payment polls, and
// workflow runs. It is a leaf package with no internal dependencies. All
// increment methods are nil-receiver safe so call sites never need to
// guard against an unconfigured collector.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all counters.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Transfer sessions
	UploadsStarted   int64
	UploadsCompleted int64
	UploadsFailed    int64
	ChunksSent       int64
	ChunksRetried    int64

	// Reconciliation polling
	PollTicks     int64
	PollResolved  int64
	PollExhausted int64
	PollExpired   int64

	// Workflow runs
	RunsStarted    int64
	RunsCompleted  int64
	RunsAborted    int64
	StageFallbacks int64

	// Best-effort side effects
	NotifyFailures int64

	// Dimensions (informational, set at construction)
	RunID   string
	ActorID string
}

// Collector accumulates metrics for one orchestration process.
// Thread-safe via sync.Mutex.
type Collector struct {
	mu sync.Mutex

	uploadsStarted   int64
	uploadsCompleted int64
	uploadsFailed    int64
	chunksSent       int64
	chunksRetried    int64

	pollTicks     int64
	pollResolved  int64
	pollExhausted int64
	pollExpired   int64

	runsStarted    int64
	runsCompleted  int64
	runsAborted    int64
	stageFallbacks int64

	notifyFailures int64

	runID   string
	actorID string
}

// NewCollector creates a Collector with dimension labels.
// runID and actorID are optional dimensions.
func NewCollector(runID, actorID string) *Collector {
	return &Collector{
		runID:   runID,
		actorID: actorID,
	}
}

// --- Transfer sessions ---

// IncUploadStarted records a transfer session initiation.
func (c *Collector) IncUploadStarted() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.uploadsStarted++
	c.mu.Unlock()
}

// IncUploadCompleted records a finalized transfer session.
func (c *Collector) IncUploadCompleted() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.uploadsCompleted++
	c.mu.Unlock()
}

// IncUploadFailed records a terminally failed transfer session.
func (c *Collector) IncUploadFailed() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.uploadsFailed++
	c.mu.Unlock()
}

// IncChunkSent records one acknowledged chunk transmission.
func (c *Collector) IncChunkSent() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.chunksSent++
	c.mu.Unlock()
}

// IncChunkRetried records a same-index chunk retransmission.
func (c *Collector) IncChunkRetried() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.chunksRetried++
	c.mu.Unlock()
}

// --- Reconciliation polling ---

// IncPollTick records one remote status read.
func (c *Collector) IncPollTick() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.pollTicks++
	c.mu.Unlock()
}

// IncPollResolved records a watch that observed a terminal status.
func (c *Collector) IncPollResolved() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.pollResolved++
	c.mu.Unlock()
}

// IncPollExhausted records a watch that ran out of attempt budget.
func (c *Collector) IncPollExhausted() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.pollExhausted++
	c.mu.Unlock()
}

// IncPollExpired records a watch terminated by remote expiry.
func (c *Collector) IncPollExpired() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.pollExpired++
	c.mu.Unlock()
}

// --- Workflow runs ---

// IncRunStarted records a workflow run start.
func (c *Collector) IncRunStarted() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.runsStarted++
	c.mu.Unlock()
}

// IncRunCompleted records a workflow run reaching Completed.
func (c *Collector) IncRunCompleted() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.runsCompleted++
	c.mu.Unlock()
}

// IncRunAborted records a workflow run reaching Aborted.
func (c *Collector) IncRunAborted() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.runsAborted++
	c.mu.Unlock()
}

// IncStageFallback records a stage failure redirected to its fallback stage.
func (c *Collector) IncStageFallback() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.stageFallbacks++
	c.mu.Unlock()
}

// --- Best-effort side effects ---

// IncNotifyFailure records a swallowed notification dispatch failure.
func (c *Collector) IncNotifyFailure() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.notifyFailures++
	c.mu.Unlock()
}

// --- Snapshot ---

// Snapshot returns an immutable point-in-time view of all counters.
// The returned Snapshot is safe to read concurrently; the Collector can
// continue to be mutated independently.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		UploadsStarted:   c.uploadsStarted,
		UploadsCompleted: c.uploadsCompleted,
		UploadsFailed:    c.uploadsFailed,
		ChunksSent:       c.chunksSent,
		ChunksRetried:    c.chunksRetried,

		PollTicks:     c.pollTicks,
		PollResolved:  c.pollResolved,
		PollExhausted: c.pollExhausted,
		PollExpired:   c.pollExpired,

		RunsStarted:    c.runsStarted,
		RunsCompleted:  c.runsCompleted,
		RunsAborted:    c.runsAborted,
		StageFallbacks: c.stageFallbacks,

		NotifyFailures: c.notifyFailures,

		RunID:   c.runID,
		ActorID: c.actorID,
	}
}
