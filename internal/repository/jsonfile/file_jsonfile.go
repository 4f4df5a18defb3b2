package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"filerelay/internal/model"
	"filerelay/internal/repository"
)

// Store is a file-backed implementation of repository.FileRepository.
//
// Records live in memory behind a RWMutex; every mutation is serialized
// through the write lock and persisted with a write-temp-then-rename swap, so
// a reader (or a crashed process restarting) never observes a torn file.
// The previous snapshot stays on disk until the rename succeeds.
type Store struct {
	path string

	mu      sync.RWMutex
	records map[string]*model.FileRecord
	order   []string
}

var _ repository.FileRepository = (*Store)(nil)

// Open loads the store from path. A missing or empty file is treated as an
// empty mapping, never a fatal error.
func Open(path string) (*Store, error) {
	s := &Store{
		path:    path,
		records: make(map[string]*model.FileRecord),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("%w: read %s: %v", repository.ErrStoreUnavailable, path, err)
	}
	if len(data) == 0 {
		return s, nil
	}

	var snapshot []model.FileRecord
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("decode metadata file %s: %w", path, err)
	}
	for i := range snapshot {
		rec := snapshot[i]
		if _, ok := s.records[rec.SavedName]; !ok {
			s.order = append(s.order, rec.SavedName)
		}
		s.records[rec.SavedName] = &rec
	}
	return s, nil
}

// Put inserts or overwrites the record for record.SavedName.
// The new snapshot is flushed to disk before the in-memory view is updated,
// so a flush failure leaves both views on the prior committed state.
func (s *Store) Put(ctx context.Context, record *model.FileRecord) (*model.FileRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if record == nil || record.SavedName == "" {
		return nil, errors.New("record with saved name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *record
	_, exists := s.records[cp.SavedName]

	snapshot := make([]model.FileRecord, 0, len(s.order)+1)
	for _, name := range s.order {
		if name == cp.SavedName {
			snapshot = append(snapshot, cp)
			continue
		}
		snapshot = append(snapshot, *s.records[name])
	}
	if !exists {
		snapshot = append(snapshot, cp)
	}

	if err := s.flush(snapshot); err != nil {
		return nil, fmt.Errorf("%w: %v", repository.ErrStoreUnavailable, err)
	}

	s.records[cp.SavedName] = &cp
	if !exists {
		s.order = append(s.order, cp.SavedName)
	}
	out := cp
	return &out, nil
}

// Get returns the record for a saved name.
func (s *Store) Get(ctx context.Context, savedName string) (*model.FileRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[savedName]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *rec
	return &out, nil
}

// ListCommitted returns committed records in insertion order.
func (s *Store) ListCommitted(ctx context.Context) ([]model.FileRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]model.FileRecord, 0, len(s.order))
	for _, name := range s.order {
		if rec := s.records[name]; rec.Status == model.StatusCommitted {
			items = append(items, *rec)
		}
	}
	return items, nil
}

// Ping verifies the directory holding the metadata file is still writable.
func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	f, err := os.CreateTemp(dir, ".relaymeta-ping-*")
	if err != nil {
		return fmt.Errorf("%w: %v", repository.ErrStoreUnavailable, err)
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}

// flush writes the snapshot to a temp file in the same directory and renames
// it over the store path. Called with the write lock held; the marshal/write
// is short and never touches the blob sink.
func (s *Store) flush(snapshot []model.FileRecord) error {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".relaymeta-*")
	if err != nil {
		return fmt.Errorf("create temp metadata file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp metadata file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("sync temp metadata file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp metadata file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("swap metadata file: %w", err)
	}
	return nil
}
