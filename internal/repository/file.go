package repository

import (
	"context"
	"errors"

	"filerelay/internal/model"
)

var (
	// ErrNotFound is returned when no record exists for a saved name.
	ErrNotFound = errors.New("file record not found")
	// ErrStoreUnavailable is returned when the backing medium cannot be
	// read or written. The previously committed state is left intact.
	ErrStoreUnavailable = errors.New("metadata store unavailable")
)

// FileRepository defines persistence for file metadata records.
// No business logic here, strictly storage of the saved-name mapping.
//
// Implementations must serialize writes to the persisted representation:
// concurrent Puts for distinct saved names must not clobber each other, and
// a reader must never observe a partially written record.
type FileRepository interface {
	// Put inserts or overwrites the record for record.SavedName atomically.
	// A failed Put leaves the prior state intact.
	Put(ctx context.Context, record *model.FileRecord) (*model.FileRecord, error)

	// Get returns the record for a saved name, or ErrNotFound.
	Get(ctx context.Context, savedName string) (*model.FileRecord, error)

	// ListCommitted returns committed records in insertion order.
	// An empty or missing backing store yields an empty slice, not an error.
	ListCommitted(ctx context.Context) ([]model.FileRecord, error)

	// Ping reports whether the backing medium is reachable and writable.
	Ping(ctx context.Context) error
}
