package types

// ArtifactRef is the opaque durable reference returned by the remote
// service once a transfer session completes. It is attached to the owning
// entity (an assessment answer, a profile) and never dereferenced locally.
type ArtifactRef string

// OwnerContext identifies the logical attachment point of an artifact:
// which entity the uploaded file belongs to once durable.
type OwnerContext struct {
	// Kind is the owning entity kind (e.g. "answer", "profile").
	Kind string `json:"kind"`
	// ID is the owning entity identifier.
	ID string `json:"id"`
	// ActorID is the user performing the upload.
	ActorID string `json:"actor_id"`
}
