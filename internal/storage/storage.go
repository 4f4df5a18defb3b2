package storage

import (
	"context"
	"io"
	"time"
)

// Package storage contains the blob sink abstraction: durable byte storage
// addressed by saved name. Implementations must rely on streaming I/O and
// never leave a half-written blob visible under its final key.

// PutObjectOptions define optional parameters for storing blobs.
// Size should be the exact number of bytes if known; if unknown, set to -1 and the
// implementation will buffer/chunk as supported by the backend.
// ContentType and Metadata are optional.
type PutObjectOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo contains basic information about a stored blob.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
	Metadata     map[string]string
}

// BlobStore is the blob sink collaborator of the upload pipeline.
// Methods use context and streaming readers; an aborted Put must leave no
// partial blob resolvable under its key.
type BlobStore interface {
	// Put stores a blob under the given key using the provided reader and options.
	Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
	// Get retrieves a blob's content as a streaming reader alongside its info.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	// Delete removes a blob by key.
	Delete(ctx context.Context, key string) error
}
