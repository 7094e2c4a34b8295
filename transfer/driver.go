package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/windlass-io/windlass/remote"
	"github.com/windlass-io/windlass/types"
)

// DefaultChunkRetries is the per-chunk retry budget of the upload driver.
const DefaultChunkRetries = 3

// Progress reports upload advancement to an observer (e.g. the TUI).
type Progress struct {
	// SessionID is the remote session handle.
	SessionID string
	// ChunksSent is the count of acknowledged chunks.
	ChunksSent int
	// TotalChunks is the derived chunk count.
	TotalChunks int
	// BytesSent is the count of acknowledged bytes.
	BytesSent int64
	// TotalBytes is the payload size.
	TotalBytes int64
}

// UploadOptions configures the upload driver.
type UploadOptions struct {
	// ChunkRetries is the per-chunk retry budget after the first attempt.
	// Zero disables retry; callers wanting the stock budget pass
	// DefaultChunkRetries. The budget is per index: it resets once a
	// chunk is acknowledged.
	ChunkRetries int
	// OnProgress, when set, is called synchronously after each
	// acknowledged chunk.
	OnProgress func(Progress)
	// Journal, when set, persists the resume point after each
	// acknowledged chunk and is cleared on success.
	Journal *Journal
}

// Upload drives one payload end-to-end: initiate (or resume from the
// journal), transmit every chunk in order with a bounded per-chunk retry
// budget, then finalize. The retry budget is the only automatic retry in
// the core; once it is exhausted the chunk error surfaces to the caller,
// who decides whether to resume later.
func (m *Manager) Upload(ctx context.Context, src io.ReaderAt, req remote.InitiateUploadRequest, opts UploadOptions) (types.ArtifactRef, error) {
	if opts.ChunkRetries < 0 {
		return "", fmt.Errorf("chunk retries must be >= 0, got %d", opts.ChunkRetries)
	}

	session, err := m.openSession(ctx, src, req, opts.Journal)
	if err != nil {
		return "", err
	}

	for session.NextChunk() < session.TotalChunks() {
		if err := m.transmitWithRetry(ctx, session, opts.ChunkRetries); err != nil {
			return "", err
		}

		if opts.Journal != nil {
			if err := opts.Journal.Write(session.Record()); err != nil {
				// A journal write failure degrades resumability, not the
				// upload itself.
				m.logger.Warn("journal write failed", map[string]any{
					"session_id": session.ID(),
					"error":      err.Error(),
				})
			}
		}

		if opts.OnProgress != nil {
			opts.OnProgress(m.progress(session))
		}
	}

	ref, err := m.Finalize(ctx, session)
	if err != nil {
		return "", err
	}

	if opts.Journal != nil {
		if err := opts.Journal.Clear(); err != nil {
			m.logger.Warn("journal clear failed", map[string]any{
				"session_id": session.ID(),
				"error":      err.Error(),
			})
		}
	}

	return ref, nil
}

// openSession resumes from the journal when a matching snapshot exists,
// otherwise initiates a fresh session.
func (m *Manager) openSession(ctx context.Context, src io.ReaderAt, req remote.InitiateUploadRequest, journal *Journal) (*Session, error) {
	if journal != nil {
		rec, ok, err := journal.Load()
		if err != nil {
			m.logger.Warn("unusable journal snapshot, starting fresh", map[string]any{
				"error": err.Error(),
			})
		} else if ok && rec.FileName == req.FileName && rec.TotalSize == req.TotalSize {
			return m.Resume(src, rec)
		}
	}
	return m.Initiate(ctx, src, req)
}

// transmitWithRetry retries a single chunk index up to the given budget.
// Only *ChunkError is retried: anything else means the session itself is
// unusable.
func (m *Manager) transmitWithRetry(ctx context.Context, s *Session, retries int) error {
	index := s.NextChunk()

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("upload canceled: %w", err)
		}
		if attempt > 0 {
			m.collector.IncChunkRetried()
		}

		lastErr = m.TransmitNext(ctx, s)
		if lastErr == nil {
			return nil
		}

		var chunkErr *ChunkError
		if !errors.As(lastErr, &chunkErr) {
			return lastErr
		}
	}

	return fmt.Errorf("chunk %d failed after %d attempts: %w", index, retries+1, lastErr)
}

func (m *Manager) progress(s *Session) Progress {
	bytesSent := int64(s.NextChunk()) * s.ChunkSize()
	if bytesSent > s.TotalSize() {
		bytesSent = s.TotalSize()
	}
	return Progress{
		SessionID:   s.ID(),
		ChunksSent:  s.NextChunk(),
		TotalChunks: s.TotalChunks(),
		BytesSent:   bytesSent,
		TotalBytes:  s.TotalSize(),
	}
}
