package model

import "time"

// FileStatus tracks a record through the upload lifecycle.
type FileStatus string

const (
	// StatusPending marks an upload that is still streaming to the blob sink.
	// Pending records are never visible to readers.
	StatusPending FileStatus = "pending"
	// StatusCommitted marks a durable, resolvable upload. Committed records
	// are immutable.
	StatusCommitted FileStatus = "committed"
	// StatusFailed marks an aborted upload. Failed records are kept for
	// diagnostics but excluded from listings.
	StatusFailed FileStatus = "failed"
)

// FileRecord represents the metadata of a relayed file.
// This is a pure domain model with no persistence-specific dependencies or tags.
// It can be used across layers (HTTP, service, repository) without coupling to storage.
type FileRecord struct {
	// SavedName is the opaque storage identifier: a random hex id plus the
	// original extension. It is globally unique and never reused.
	SavedName    string     `json:"saved"`
	OriginalName string     `json:"original"`
	Size         int64      `json:"size"`
	ContentType  string     `json:"content_type"`
	Status       FileStatus `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
}
