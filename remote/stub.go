package remote

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/windlass-io/windlass/types"
)

// DefaultStubChunkSize is the chunk size allocated by the stub unless
// overridden.
const DefaultStubChunkSize = 2 * 1024 * 1024

// Stub is a scriptable in-memory Facade for tests and offline use.
//
// The upload surface mirrors the real remote's correctness defenses: it
// accepts chunks in strictly increasing index order, tolerates same-index
// retransmission of the last accepted chunk (idempotent re-ack without
// duplicating bytes), and rejects any other out-of-order index.
type Stub struct {
	mu sync.Mutex

	// ChunkSize is the allocation returned by InitiateUpload.
	// Defaults to DefaultStubChunkSize.
	ChunkSize int64

	// InitiateErr, when set, is returned by InitiateUpload.
	InitiateErr error
	// CompleteErr, when set, is returned by CompleteUpload.
	CompleteErr error
	// NotifyErr, when set, is returned by DashboardNotify.
	NotifyErr error
	// ResultErr, when set, is returned by AssessmentResult.
	ResultErr error

	// ChunkFailures maps chunk index to a count of injected failures:
	// the first N calls for that index fail before any byte is accepted.
	ChunkFailures map[int]int

	// PaymentSequence holds the statuses returned by successive
	// PaymentStatus calls per checkout session. Once a sequence is
	// drained, its last status repeats. Unknown sessions report pending.
	PaymentSequence map[string][]types.PaymentStatus

	// Results maps unit ID to the scoring verdict AssessmentResult returns.
	Results map[string]types.AssessmentResult

	sessions     map[string]*stubSession
	paymentCalls map[string]int
	NotifyCalls  []StubNotifyCall
	ChunkCalls   []StubChunkCall
	PaymentReads int
}

// StubNotifyCall records one DashboardNotify invocation.
type StubNotifyCall struct {
	UserID  string
	Payload map[string]any
}

// StubChunkCall records one UploadChunk invocation, including rejected ones.
type StubChunkCall struct {
	SessionID string
	Index     int
	Size      int
	Accepted  bool
}

type stubSession struct {
	totalSize int64
	chunkSize int64
	next      int
	bytes     int64
	completed bool
	ref       types.ArtifactRef
}

// NewStub creates a stub facade with empty scripts.
func NewStub() *Stub {
	return &Stub{
		ChunkSize:       DefaultStubChunkSize,
		ChunkFailures:   make(map[int]int),
		PaymentSequence: make(map[string][]types.PaymentStatus),
		Results:         make(map[string]types.AssessmentResult),
		sessions:        make(map[string]*stubSession),
		paymentCalls:    make(map[string]int),
	}
}

// InitiateUpload implements Facade.
func (s *Stub) InitiateUpload(_ context.Context, req InitiateUploadRequest) (InitiateUploadResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.InitiateErr != nil {
		return InitiateUploadResponse{}, s.InitiateErr
	}
	if req.TotalSize <= 0 {
		return InitiateUploadResponse{}, &StatusError{Code: 422, Body: "total_size must be positive"}
	}

	id := "sess-" + uuid.NewString()
	s.sessions[id] = &stubSession{
		totalSize: req.TotalSize,
		chunkSize: s.ChunkSize,
	}
	return InitiateUploadResponse{SessionID: id, ChunkSize: s.ChunkSize}, nil
}

// UploadChunk implements Facade.
func (s *Stub) UploadChunk(_ context.Context, sessionID string, index int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := func(accepted bool) {
		s.ChunkCalls = append(s.ChunkCalls, StubChunkCall{
			SessionID: sessionID,
			Index:     index,
			Size:      len(data),
			Accepted:  accepted,
		})
	}

	sess, ok := s.sessions[sessionID]
	if !ok {
		record(false)
		return &StatusError{Code: 404, Body: "unknown session"}
	}
	if sess.completed {
		record(false)
		return &StatusError{Code: 409, Body: "session already completed"}
	}

	if remaining := s.ChunkFailures[index]; remaining > 0 {
		s.ChunkFailures[index] = remaining - 1
		record(false)
		return fmt.Errorf("injected failure for chunk %d", index)
	}

	switch {
	case index == sess.next:
		sess.next++
		sess.bytes += int64(len(data))
		record(true)
		return nil
	case index == sess.next-1:
		// Idempotent re-ack: the chunk was already accepted, the original
		// acknowledgment was lost. No bytes are duplicated.
		record(true)
		return nil
	default:
		record(false)
		return &StatusError{Code: 409, Body: fmt.Sprintf("expected chunk %d, got %d", sess.next, index)}
	}
}

// CompleteUpload implements Facade.
func (s *Stub) CompleteUpload(_ context.Context, sessionID string, totalChunks int) (types.ArtifactRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.CompleteErr != nil {
		return "", s.CompleteErr
	}

	sess, ok := s.sessions[sessionID]
	if !ok {
		return "", &StatusError{Code: 404, Body: "unknown session"}
	}
	if sess.next != totalChunks {
		return "", &StatusError{Code: 422, Body: fmt.Sprintf("have %d chunks, caller declared %d", sess.next, totalChunks)}
	}
	if sess.bytes != sess.totalSize {
		return "", &StatusError{Code: 422, Body: fmt.Sprintf("have %d bytes, session declared %d", sess.bytes, sess.totalSize)}
	}

	sess.completed = true
	sess.ref = types.ArtifactRef("artifact-" + sessionID)
	return sess.ref, nil
}

// PaymentStatus implements Facade.
func (s *Stub) PaymentStatus(_ context.Context, checkoutSessionID string) (types.PaymentStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.PaymentReads++
	seq := s.PaymentSequence[checkoutSessionID]
	if len(seq) == 0 {
		return types.PaymentStatusPending, nil
	}

	call := s.paymentCalls[checkoutSessionID]
	s.paymentCalls[checkoutSessionID] = call + 1
	if call >= len(seq) {
		return seq[len(seq)-1], nil
	}
	return seq[call], nil
}

// AssessmentResult implements Facade.
func (s *Stub) AssessmentResult(_ context.Context, unitID string) (types.AssessmentResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ResultErr != nil {
		return types.AssessmentResult{}, s.ResultErr
	}
	result, ok := s.Results[unitID]
	if !ok {
		return types.AssessmentResult{}, &StatusError{Code: 404, Body: "unknown unit"}
	}
	return result, nil
}

// DashboardNotify implements Facade.
func (s *Stub) DashboardNotify(_ context.Context, userID string, payload map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.NotifyCalls = append(s.NotifyCalls, StubNotifyCall{UserID: userID, Payload: payload})
	return s.NotifyErr
}

// ChunkCallCount returns how many UploadChunk calls were made for the
// given index, accepted or not.
func (s *Stub) ChunkCallCount(index int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, call := range s.ChunkCalls {
		if call.Index == index {
			n++
		}
	}
	return n
}

// AcceptedChunks returns how many distinct chunks were accepted for the
// given session.
func (s *Stub) AcceptedChunks(sessionID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[sessionID]; ok {
		return sess.next
	}
	return 0
}

// Verify Stub implements Facade.
var _ Facade = (*Stub)(nil)
