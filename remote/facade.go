// Package remote defines the boundary to the assessment service of record.
//
// The orchestration core never talks HTTP directly; it consumes the Facade
// interface. A production HTTP implementation and a scriptable stub live in
// this package so every caller can be exercised against either.
package remote

import (
	"context"

	"github.com/windlass-io/windlass/types"
)

// InitiateUploadRequest describes a new chunked upload to the remote.
type InitiateUploadRequest struct {
	// FileName is the client-side name of the payload.
	FileName string `json:"file_name"`
	// TotalSize is the payload size in bytes. Must be > 0.
	TotalSize int64 `json:"total_size"`
	// MimeType is the payload content type.
	MimeType string `json:"mime_type"`
	// Owner identifies the logical attachment point of the artifact.
	Owner types.OwnerContext `json:"owner"`
}

// InitiateUploadResponse is the remote's allocation for a new upload session.
type InitiateUploadResponse struct {
	// SessionID is the opaque session handle. Valid until completed or
	// garbage-collected server-side.
	SessionID string `json:"session_id"`
	// ChunkSize is the remote-chosen chunk size in bytes.
	ChunkSize int64 `json:"chunk_size"`
}

// Facade is the external collaborator contract the orchestration core
// depends on. Implementations must be safe for concurrent use; every
// method performs at most one network round-trip.
type Facade interface {
	// InitiateUpload allocates a chunked upload session.
	InitiateUpload(ctx context.Context, req InitiateUploadRequest) (InitiateUploadResponse, error)

	// UploadChunk transmits one chunk. A nil return is the remote's
	// acknowledgment of receipt. The remote may reject out-of-order or
	// duplicate indices; same-index retransmission after a failed call
	// must be accepted.
	UploadChunk(ctx context.Context, sessionID string, index int, data []byte) error

	// CompleteUpload asks the remote to assemble and validate the artifact.
	CompleteUpload(ctx context.Context, sessionID string, totalChunks int) (types.ArtifactRef, error)

	// PaymentStatus reads the current status of a checkout session.
	PaymentStatus(ctx context.Context, checkoutSessionID string) (types.PaymentStatus, error)

	// AssessmentResult reads the scoring verdict for a completed unit.
	AssessmentResult(ctx context.Context, unitID string) (types.AssessmentResult, error)

	// DashboardNotify pushes an event to the user's dashboard feed.
	// Best-effort from the caller's perspective; failures are reported
	// but callers may swallow them.
	DashboardNotify(ctx context.Context, userID string, payload map[string]any) error
}
