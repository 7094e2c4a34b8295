package transfer

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/windlass-io/windlass/remote"
)

func TestUpload_EndToEnd(t *testing.T) {
	stub := remote.NewStub()
	stub.ChunkSize = 2 * 1024 * 1024
	m, collector := newTestManager(stub)

	size := int64(10 * 1024 * 1024)
	payload := bytes.NewReader(make([]byte, size))

	ref, err := m.Upload(context.Background(), payload, testRequest(size), UploadOptions{ChunkRetries: DefaultChunkRetries})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if ref == "" {
		t.Fatal("expected non-empty artifact ref")
	}

	snap := collector.Snapshot()
	if snap.ChunksSent != 5 {
		t.Errorf("expected 5 chunks sent, got %d", snap.ChunksSent)
	}
	if snap.ChunksRetried != 0 {
		t.Errorf("expected no retries, got %d", snap.ChunksRetried)
	}
	if snap.UploadsCompleted != 1 {
		t.Errorf("expected 1 completed upload, got %d", snap.UploadsCompleted)
	}
}

func TestUpload_RetriesChunkWithinBudget(t *testing.T) {
	stub := remote.NewStub()
	stub.ChunkSize = 4
	stub.ChunkFailures[2] = 2
	m, collector := newTestManager(stub)

	ref, err := m.Upload(context.Background(), bytes.NewReader(make([]byte, 20)), testRequest(20), UploadOptions{ChunkRetries: 3})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if ref == "" {
		t.Fatal("expected artifact ref")
	}

	// 2 injected failures + 1 success
	if got := stub.ChunkCallCount(2); got != 3 {
		t.Errorf("expected 3 calls for chunk 2, got %d", got)
	}
	if got := collector.Snapshot().ChunksRetried; got != 2 {
		t.Errorf("expected 2 retried transmissions, got %d", got)
	}
}

func TestUpload_ExhaustsChunkRetryBudget(t *testing.T) {
	stub := remote.NewStub()
	stub.ChunkSize = 4
	stub.ChunkFailures[0] = 5
	m, _ := newTestManager(stub)

	_, err := m.Upload(context.Background(), bytes.NewReader(make([]byte, 8)), testRequest(8), UploadOptions{ChunkRetries: 2})
	if err == nil {
		t.Fatal("expected error after exhausting chunk retries")
	}
	if !strings.Contains(err.Error(), "chunk 0") {
		t.Errorf("error should name the failing chunk: %v", err)
	}

	// 1 initial + 2 retries = 3
	if got := stub.ChunkCallCount(0); got != 3 {
		t.Errorf("expected 3 calls for chunk 0, got %d", got)
	}
}

func TestUpload_ZeroRetriesDisablesRetry(t *testing.T) {
	stub := remote.NewStub()
	stub.ChunkSize = 4
	stub.ChunkFailures[0] = 1
	m, _ := newTestManager(stub)

	_, err := m.Upload(context.Background(), bytes.NewReader(make([]byte, 8)), testRequest(8), UploadOptions{ChunkRetries: 0})
	if err == nil {
		t.Fatal("expected error with retry disabled")
	}
	if got := stub.ChunkCallCount(0); got != 1 {
		t.Errorf("expected exactly 1 call for chunk 0, got %d", got)
	}
}

func TestUpload_ProgressCallback(t *testing.T) {
	stub := remote.NewStub()
	stub.ChunkSize = 4
	m, _ := newTestManager(stub)

	var snapshots []Progress
	opts := UploadOptions{
		OnProgress: func(p Progress) { snapshots = append(snapshots, p) },
	}

	if _, err := m.Upload(context.Background(), bytes.NewReader(make([]byte, 10)), testRequest(10), opts); err != nil {
		t.Fatalf("upload: %v", err)
	}

	if len(snapshots) != 3 {
		t.Fatalf("expected 3 progress snapshots, got %d", len(snapshots))
	}
	last := snapshots[len(snapshots)-1]
	if last.ChunksSent != 3 || last.TotalChunks != 3 {
		t.Errorf("expected 3/3 chunks in final snapshot, got %d/%d", last.ChunksSent, last.TotalChunks)
	}
	if last.BytesSent != 10 || last.TotalBytes != 10 {
		t.Errorf("expected 10/10 bytes in final snapshot, got %d/%d", last.BytesSent, last.TotalBytes)
	}
}

func TestUpload_ResumesFromJournal(t *testing.T) {
	stub := remote.NewStub()
	stub.ChunkSize = 4
	stub.ChunkFailures[3] = 1
	m, _ := newTestManager(stub)

	journal := NewJournal(filepath.Join(t.TempDir(), "payload.journal"))
	payload := make([]byte, 20) // 5 chunks
	req := testRequest(20)

	// First attempt dies at chunk 3 with retry disabled.
	_, err := m.Upload(context.Background(), bytes.NewReader(payload), req, UploadOptions{Journal: journal})
	if err == nil {
		t.Fatal("expected first attempt to fail")
	}

	rec, ok, err := journal.Load()
	if err != nil || !ok {
		t.Fatalf("expected resume snapshot, ok=%v err=%v", ok, err)
	}
	if rec.NextChunk != 3 {
		t.Errorf("expected resume point at chunk 3, got %d", rec.NextChunk)
	}

	// Second attempt resumes and finishes without resending chunks 0-2.
	ref, err := m.Upload(context.Background(), bytes.NewReader(payload), req, UploadOptions{Journal: journal})
	if err != nil {
		t.Fatalf("resumed upload: %v", err)
	}
	if ref == "" {
		t.Fatal("expected artifact ref")
	}

	for i := 0; i < 3; i++ {
		if got := stub.ChunkCallCount(i); got != 1 {
			t.Errorf("chunk %d resent after resume: %d calls", i, got)
		}
	}

	// Journal cleared on success.
	if _, ok, err := journal.Load(); err != nil || ok {
		t.Errorf("expected cleared journal, ok=%v err=%v", ok, err)
	}
}

func TestUpload_JournalMismatchStartsFresh(t *testing.T) {
	stub := remote.NewStub()
	stub.ChunkSize = 4
	m, _ := newTestManager(stub)

	journal := NewJournal(filepath.Join(t.TempDir(), "payload.journal"))
	stale := JournalRecord{
		SessionID:   "sess-stale",
		FileName:    "other.bin",
		TotalSize:   12,
		ChunkSize:   4,
		TotalChunks: 3,
		NextChunk:   1,
	}
	if err := journal.Write(stale); err != nil {
		t.Fatalf("seed journal: %v", err)
	}

	ref, err := m.Upload(context.Background(), bytes.NewReader(make([]byte, 8)), testRequest(8), UploadOptions{Journal: journal})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if ref == "" {
		t.Fatal("expected artifact ref")
	}

	// The stale session was ignored: all calls went to a fresh session.
	for _, call := range stub.ChunkCalls {
		if call.SessionID == "sess-stale" {
			t.Errorf("chunk sent to stale session: %+v", call)
		}
	}
}

func TestUpload_RejectsNegativeRetries(t *testing.T) {
	stub := remote.NewStub()
	m, _ := newTestManager(stub)

	_, err := m.Upload(context.Background(), bytes.NewReader(make([]byte, 4)), testRequest(4), UploadOptions{ChunkRetries: -1})
	if err == nil {
		t.Fatal("expected error for negative retries")
	}
}
