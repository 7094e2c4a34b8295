// Package transfer implements resumable chunked artifact upload.
//
// A Manager owns the lifecycle of one or more transfer sessions against
// the remote service: initiate allocates a session and chunk size,
// TransmitNext moves exactly one chunk, Finalize obtains the durable
// artifact reference. Chunk transmission is strictly sequential within a
// session; the cursor advances only after the remote acknowledges receipt,
// so a failed call leaves an idempotent resume point at the same index.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/windlass-io/windlass/log"
	"github.com/windlass-io/windlass/metrics"
	"github.com/windlass-io/windlass/remote"
	"github.com/windlass-io/windlass/types"
)

// State is the lifecycle state of a transfer session.
type State string

// Session states. Completed and Failed are terminal.
const (
	StateInitiated    State = "initiated"
	StateTransmitting State = "transmitting"
	StateCompleted    State = "completed"
	StateFailed       State = "failed"
)

// IsTerminal reports whether no further transition is defined.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Sentinel errors for session failure classification.
var (
	// ErrInitiationRejected is terminal for the attempted session: the
	// caller must start a new session to retry the upload.
	ErrInitiationRejected = errors.New("upload initiation rejected")

	// ErrFinalizationRejected is terminal for the session.
	ErrFinalizationRejected = errors.New("upload finalization rejected")

	// ErrChunksRemaining is returned by Finalize when not every chunk has
	// been acknowledged. Checked locally; no network call is made.
	ErrChunksRemaining = errors.New("chunks remaining before finalize")

	// ErrSessionTerminal is returned when an operation is attempted on a
	// completed or failed session.
	ErrSessionTerminal = errors.New("session is in a terminal state")

	// ErrAllChunksSent is returned by TransmitNext once every chunk has
	// been acknowledged; the caller should Finalize.
	ErrAllChunksSent = errors.New("all chunks already transmitted")
)

// ChunkError reports a failed chunk transmission. The session cursor is
// unchanged, so retrying the same index is safe.
type ChunkError struct {
	// Index is the 0-based chunk index that failed.
	Index int
	// Err is the underlying transmission error.
	Err error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("chunk %d transmission failed: %v", e.Index, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As chain traversal.
func (e *ChunkError) Unwrap() error {
	return e.Err
}

// Session is one chunked-upload operation. Single-owner, single-writer:
// only the Manager that created (or resumed) it mutates it, and never from
// two goroutines at once. Discard after a terminal state is reported.
type Session struct {
	id          string
	fileName    string
	mimeType    string
	owner       types.OwnerContext
	totalSize   int64
	chunkSize   int64
	totalChunks int
	nextChunk   int
	state       State
	src         io.ReaderAt
}

// ID returns the remote-issued session handle.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() State { return s.state }

// NextChunk returns the 0-based index of the next chunk to transmit.
func (s *Session) NextChunk() int { return s.nextChunk }

// TotalChunks returns the derived chunk count, ceil(totalSize/chunkSize).
func (s *Session) TotalChunks() int { return s.totalChunks }

// TotalSize returns the payload size in bytes.
func (s *Session) TotalSize() int64 { return s.totalSize }

// ChunkSize returns the remote-allocated chunk size in bytes.
func (s *Session) ChunkSize() int64 { return s.chunkSize }

// Record returns a journal snapshot of the session's resume point.
func (s *Session) Record() JournalRecord {
	return JournalRecord{
		SessionID:   s.id,
		FileName:    s.fileName,
		MimeType:    s.mimeType,
		OwnerKind:   s.owner.Kind,
		OwnerID:     s.owner.ID,
		ActorID:     s.owner.ActorID,
		TotalSize:   s.totalSize,
		ChunkSize:   s.chunkSize,
		TotalChunks: s.totalChunks,
		NextChunk:   s.nextChunk,
	}
}

// Manager drives transfer sessions against the remote facade.
type Manager struct {
	facade    remote.Facade
	logger    *log.Logger
	collector *metrics.Collector
}

// NewManager creates a transfer manager.
// collector may be nil (all metrics methods are nil-safe).
func NewManager(facade remote.Facade, logger *log.Logger, collector *metrics.Collector) *Manager {
	return &Manager{
		facade:    facade,
		logger:    logger,
		collector: collector,
	}
}

// Initiate allocates a new transfer session for the payload readable from
// src. req.TotalSize must be positive; the remote allocates the session id
// and chunk size. Failure is terminal for the attempted session.
func (m *Manager) Initiate(ctx context.Context, src io.ReaderAt, req remote.InitiateUploadRequest) (*Session, error) {
	if req.TotalSize <= 0 {
		return nil, fmt.Errorf("%w: total size must be positive, got %d", ErrInitiationRejected, req.TotalSize)
	}

	resp, err := m.facade.InitiateUpload(ctx, req)
	if err != nil {
		m.collector.IncUploadFailed()
		return nil, fmt.Errorf("%w: %w", ErrInitiationRejected, err)
	}
	if resp.ChunkSize <= 0 {
		m.collector.IncUploadFailed()
		return nil, fmt.Errorf("%w: remote allocated invalid chunk size %d", ErrInitiationRejected, resp.ChunkSize)
	}

	m.collector.IncUploadStarted()

	session := &Session{
		id:          resp.SessionID,
		fileName:    req.FileName,
		mimeType:    req.MimeType,
		owner:       req.Owner,
		totalSize:   req.TotalSize,
		chunkSize:   resp.ChunkSize,
		totalChunks: chunkCount(req.TotalSize, resp.ChunkSize),
		state:       StateInitiated,
		src:         src,
	}

	m.logger.Info("transfer session initiated", map[string]any{
		"session_id":   session.id,
		"file":         session.fileName,
		"total_size":   session.totalSize,
		"chunk_size":   session.chunkSize,
		"total_chunks": session.totalChunks,
	})

	return session, nil
}

// Resume rebuilds a session from a journal record at its recorded cursor.
// The payload src must be byte-identical to the one the record was
// journaled from; the remote rejects mismatched chunks at completion.
func (m *Manager) Resume(src io.ReaderAt, rec JournalRecord) (*Session, error) {
	if err := rec.Validate(); err != nil {
		return nil, fmt.Errorf("resume: %w", err)
	}

	session := &Session{
		id:          rec.SessionID,
		fileName:    rec.FileName,
		mimeType:    rec.MimeType,
		owner:       types.OwnerContext{Kind: rec.OwnerKind, ID: rec.OwnerID, ActorID: rec.ActorID},
		totalSize:   rec.TotalSize,
		chunkSize:   rec.ChunkSize,
		totalChunks: rec.TotalChunks,
		nextChunk:   rec.NextChunk,
		state:       StateTransmitting,
		src:         src,
	}
	if rec.NextChunk == 0 {
		session.state = StateInitiated
	}

	m.logger.Info("transfer session resumed", map[string]any{
		"session_id": session.id,
		"next_chunk": session.nextChunk,
	})

	return session, nil
}

// TransmitNext sends exactly one chunk: the byte range
// [nextChunk*chunkSize, min(+chunkSize, totalSize)). The cursor advances
// only after the remote acknowledges receipt. On failure the session stays
// in Transmitting with the cursor unchanged and a *ChunkError is returned;
// the caller may retry the same index.
func (m *Manager) TransmitNext(ctx context.Context, s *Session) error {
	if s.state.IsTerminal() {
		return ErrSessionTerminal
	}
	if s.nextChunk >= s.totalChunks {
		return ErrAllChunksSent
	}

	s.state = StateTransmitting

	offset := int64(s.nextChunk) * s.chunkSize
	length := s.chunkSize
	if remaining := s.totalSize - offset; remaining < length {
		length = remaining
	}

	buf := make([]byte, length)
	if _, err := s.src.ReadAt(buf, offset); err != nil {
		return &ChunkError{Index: s.nextChunk, Err: fmt.Errorf("read payload: %w", err)}
	}

	if err := m.facade.UploadChunk(ctx, s.id, s.nextChunk, buf); err != nil {
		m.logger.Warn("chunk transmission failed", map[string]any{
			"session_id": s.id,
			"chunk":      s.nextChunk,
		})
		return &ChunkError{Index: s.nextChunk, Err: err}
	}

	s.nextChunk++
	m.collector.IncChunkSent()
	return nil
}

// Finalize asks the remote to assemble and validate the artifact.
// Fails fast with ErrChunksRemaining, making no network call, unless every
// chunk has been acknowledged. On remote rejection the session moves to
// Failed and the caller must restart with a new session.
func (m *Manager) Finalize(ctx context.Context, s *Session) (types.ArtifactRef, error) {
	if s.state.IsTerminal() {
		return "", ErrSessionTerminal
	}
	if s.nextChunk != s.totalChunks {
		return "", fmt.Errorf("%w: %d of %d acknowledged", ErrChunksRemaining, s.nextChunk, s.totalChunks)
	}

	ref, err := m.facade.CompleteUpload(ctx, s.id, s.totalChunks)
	if err != nil {
		s.state = StateFailed
		m.collector.IncUploadFailed()
		return "", fmt.Errorf("%w: %w", ErrFinalizationRejected, err)
	}

	s.state = StateCompleted
	m.collector.IncUploadCompleted()

	m.logger.Info("transfer session completed", map[string]any{
		"session_id":   s.id,
		"artifact_ref": string(ref),
	})

	return ref, nil
}

// chunkCount derives ceil(totalSize / chunkSize).
func chunkCount(totalSize, chunkSize int64) int {
	return int((totalSize + chunkSize - 1) / chunkSize)
}
