package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"filerelay/internal/hub"
	"filerelay/internal/model"
	"filerelay/internal/repository"
	"filerelay/internal/storage"
)

var (
	ErrFilenameRequired = errors.New("filename is required")
	ErrReaderNil        = errors.New("reader is nil")
	ErrNotFound         = errors.New("file not found")
)

// RelayService defines the use cases of the file relay: the upload pipeline
// plus the read-only listing/resolution surface.
type RelayService interface {
	// Upload streams the content to the blob sink and commits the metadata
	// record, then notifies subscribers. All-or-nothing: on any failure no
	// committed record, no resolvable blob and no notification remain.
	// initiatorID optionally carries the uploader's push connection id.
	Upload(ctx context.Context, r io.Reader, originalFilename string, contentType string, size int64, initiatorID string) (*model.FileRecord, error)

	// List returns committed records in insertion order.
	List(ctx context.Context) ([]model.FileRecord, error)

	// Open resolves a saved name and streams the blob content.
	Open(ctx context.Context, savedName string) (io.ReadCloser, *model.FileRecord, error)
}

// relayService is a concrete implementation of RelayService.
type relayService struct {
	blobs storage.BlobStore
	repo  repository.FileRepository
	hub   hub.Broadcaster
}

// NewRelayService constructs a new RelayService.
func NewRelayService(blobs storage.BlobStore, repo repository.FileRepository, b hub.Broadcaster) RelayService {
	return &relayService{blobs: blobs, repo: repo, hub: b}
}

func (s *relayService) Upload(ctx context.Context, r io.Reader, originalFilename string, contentType string, size int64, initiatorID string) (*model.FileRecord, error) {
	if strings.TrimSpace(originalFilename) == "" {
		return nil, ErrFilenameRequired
	}
	if r == nil {
		return nil, ErrReaderNil
	}

	// Fresh collision-resistant id per call, extension preserved for
	// content-type inference. Never reused, never deduplicated.
	ext := filepath.Ext(originalFilename)
	savedName := strings.ReplaceAll(uuid.New().String(), "-", "") + ext

	record := &model.FileRecord{
		SavedName:    savedName,
		OriginalName: originalFilename,
		ContentType:  contentType,
		Status:       model.StatusPending,
		CreatedAt:    time.Now().UTC(),
	}

	// Stream to the blob sink first. No store or hub lock is held here; the
	// pending record is not visible to any reader yet.
	objInfo, err := s.blobs.Put(ctx, savedName, r, storage.PutObjectOptions{
		Size:        size,
		ContentType: contentType,
		Metadata: map[string]string{
			"original-filename": originalFilename,
		},
	})
	if err != nil {
		// Keep the failed record for diagnostics; it is excluded from
		// listings and resolution. A client disconnect lands here too.
		record.Status = model.StatusFailed
		if _, putErr := s.repo.Put(ctx, record); putErr != nil && ctx.Err() == nil {
			return nil, fmt.Errorf("blob write failed: %v; record failure: %w", err, putErr)
		}
		return nil, fmt.Errorf("blob write failed: %w", err)
	}

	record.Size = objInfo.Size
	record.Status = model.StatusCommitted

	// Commit: the atomic transition from invisible to resolvable.
	stored, err := s.repo.Put(ctx, record)
	if err != nil {
		// Roll back the blob so no orphaned bytes stay resolvable.
		if delErr := s.blobs.Delete(ctx, savedName); delErr != nil {
			return nil, fmt.Errorf("metadata commit failed: %v; rollback delete failed: %w", err, delErr)
		}
		return nil, fmt.Errorf("metadata commit failed: %w", err)
	}

	// Notify only after the commit. Fan-out failures are the hub's problem,
	// never the uploader's.
	s.hub.Broadcast(hub.FileUploaded{
		OriginalFilename: stored.OriginalName,
		SavedFilename:    stored.SavedName,
		SID:              initiatorID,
	})

	return stored, nil
}

// List returns committed records without exposing repository types.
func (s *relayService) List(ctx context.Context) ([]model.FileRecord, error) {
	return s.repo.ListCommitted(ctx)
}

// Open resolves a saved name to its record and blob stream.
// Only committed records resolve; pending and failed ones report not found.
func (s *relayService) Open(ctx context.Context, savedName string) (io.ReadCloser, *model.FileRecord, error) {
	if savedName == "" {
		return nil, nil, ErrNotFound
	}
	record, err := s.repo.Get(ctx, savedName)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}
	if record.Status != model.StatusCommitted {
		return nil, nil, ErrNotFound
	}

	rc, _, err := s.blobs.Get(ctx, savedName)
	if err != nil {
		return nil, nil, fmt.Errorf("open blob %s: %w", savedName, err)
	}
	return rc, record, nil
}
