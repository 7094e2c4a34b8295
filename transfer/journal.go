package transfer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// JournalRecord is the resume point of one transfer session, written after
// each acknowledged chunk. An interrupted upload restarts at NextChunk
// instead of resending acknowledged chunks.
type JournalRecord struct {
	SessionID   string `msgpack:"session_id"`
	FileName    string `msgpack:"file_name"`
	MimeType    string `msgpack:"mime_type"`
	OwnerKind   string `msgpack:"owner_kind"`
	OwnerID     string `msgpack:"owner_id"`
	ActorID     string `msgpack:"actor_id"`
	TotalSize   int64  `msgpack:"total_size"`
	ChunkSize   int64  `msgpack:"chunk_size"`
	TotalChunks int    `msgpack:"total_chunks"`
	NextChunk   int    `msgpack:"next_chunk"`
	// UpdatedAt is the snapshot time in ISO 8601 UTC.
	UpdatedAt string `msgpack:"updated_at"`
}

// Validate checks internal consistency of a loaded record.
func (r JournalRecord) Validate() error {
	if r.SessionID == "" {
		return errors.New("journal record missing session id")
	}
	if r.TotalSize <= 0 || r.ChunkSize <= 0 {
		return fmt.Errorf("journal record has invalid sizes (total=%d, chunk=%d)", r.TotalSize, r.ChunkSize)
	}
	if r.TotalChunks != chunkCount(r.TotalSize, r.ChunkSize) {
		return fmt.Errorf("journal record chunk count %d inconsistent with sizes", r.TotalChunks)
	}
	if r.NextChunk < 0 || r.NextChunk > r.TotalChunks {
		return fmt.Errorf("journal record cursor %d out of range [0, %d]", r.NextChunk, r.TotalChunks)
	}
	return nil
}

// Journal persists a session's resume point to a file as a msgpack
// snapshot. Writes are atomic (temp file + rename) so a crash mid-write
// never corrupts the previous snapshot.
type Journal struct {
	path string
}

// NewJournal creates a journal backed by the given file path.
// The parent directory is created on first write.
func NewJournal(path string) *Journal {
	return &Journal{path: path}
}

// Path returns the backing file path.
func (j *Journal) Path() string { return j.path }

// Write persists the record, replacing any previous snapshot.
func (j *Journal) Write(rec JournalRecord) error {
	rec.UpdatedAt = time.Now().UTC().Format(time.RFC3339)

	data, err := msgpack.Marshal(rec)
	if err != nil {
		return fmt.Errorf("journal: encode record: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(j.path), 0o755); err != nil {
		return fmt.Errorf("journal: create directory: %w", err)
	}

	tmp := j.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("journal: write snapshot: %w", err)
	}
	if err := os.Rename(tmp, j.path); err != nil {
		return fmt.Errorf("journal: replace snapshot: %w", err)
	}
	return nil
}

// Load reads the current snapshot. The second return is false when no
// snapshot exists (not an error: there is simply nothing to resume).
func (j *Journal) Load() (JournalRecord, bool, error) {
	data, err := os.ReadFile(j.path)
	if err != nil {
		if os.IsNotExist(err) {
			return JournalRecord{}, false, nil
		}
		return JournalRecord{}, false, fmt.Errorf("journal: read snapshot: %w", err)
	}

	var rec JournalRecord
	if err := msgpack.Unmarshal(data, &rec); err != nil {
		return JournalRecord{}, false, fmt.Errorf("journal: decode snapshot: %w", err)
	}
	if err := rec.Validate(); err != nil {
		return JournalRecord{}, false, err
	}
	return rec, true, nil
}

// Clear removes the snapshot. Removing an absent snapshot is not an error.
func (j *Journal) Clear() error {
	if err := os.Remove(j.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("journal: clear snapshot: %w", err)
	}
	return nil
}
