package jsonfile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"filerelay/internal/model"
	"filerelay/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRecord(saved, original string) *model.FileRecord {
	return &model.FileRecord{
		SavedName:    saved,
		OriginalName: original,
		Size:         42,
		ContentType:  "application/octet-stream",
		Status:       model.StatusCommitted,
		CreatedAt:    time.Now().UTC(),
	}
}

func TestOpen_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file_mapping.json")

	store, err := Open(path)
	require.NoError(t, err)

	items, err := store.ListCommitted(context.Background())
	assert.NoError(t, err)
	assert.Empty(t, items)
}

func TestOpen_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file_mapping.json")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	store, err := Open(path)
	require.NoError(t, err)

	items, err := store.ListCommitted(context.Background())
	assert.NoError(t, err)
	assert.Empty(t, items)
}

func TestStore_PutGet(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "file_mapping.json")
	store, err := Open(path)
	require.NoError(t, err)

	rec := newRecord("abc123.pdf", "report.pdf")
	stored, err := store.Put(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, rec.SavedName, stored.SavedName)

	got, err := store.Get(ctx, "abc123.pdf")
	require.NoError(t, err)
	assert.Equal(t, "report.pdf", got.OriginalName)
	assert.Equal(t, model.StatusCommitted, got.Status)

	_, err = store.Get(ctx, "nope.pdf")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestStore_Overwrite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "file_mapping.json")
	store, err := Open(path)
	require.NoError(t, err)

	rec := newRecord("abc123.pdf", "report.pdf")
	rec.Status = model.StatusFailed
	_, err = store.Put(ctx, rec)
	require.NoError(t, err)

	rec.Status = model.StatusCommitted
	_, err = store.Put(ctx, rec)
	require.NoError(t, err)

	items, err := store.ListCommitted(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "abc123.pdf", items[0].SavedName)
}

func TestStore_ListCommitted_OrderAndFiltering(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "file_mapping.json")
	store, err := Open(path)
	require.NoError(t, err)

	first := newRecord("a.txt", "one.txt")
	second := newRecord("b.txt", "two.txt")
	failed := newRecord("c.txt", "three.txt")
	failed.Status = model.StatusFailed
	pending := newRecord("d.txt", "four.txt")
	pending.Status = model.StatusPending

	for _, rec := range []*model.FileRecord{first, second, failed, pending} {
		_, err := store.Put(ctx, rec)
		require.NoError(t, err)
	}

	items, err := store.ListCommitted(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "a.txt", items[0].SavedName)
	assert.Equal(t, "b.txt", items[1].SavedName)
}

func TestStore_ReloadFromDisk(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "file_mapping.json")

	store, err := Open(path)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err := store.Put(ctx, newRecord(fmt.Sprintf("f%d.txt", i), fmt.Sprintf("orig%d.txt", i)))
		require.NoError(t, err)
	}

	// A fresh store on the same path sees the same records in the same order.
	reloaded, err := Open(path)
	require.NoError(t, err)
	items, err := reloaded.ListCommitted(ctx)
	require.NoError(t, err)
	require.Len(t, items, 5)
	for i, rec := range items {
		assert.Equal(t, fmt.Sprintf("f%d.txt", i), rec.SavedName)
	}
}

func TestStore_ConcurrentPuts(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "file_mapping.json")
	store, err := Open(path)
	require.NoError(t, err)

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := store.Put(ctx, newRecord(fmt.Sprintf("f%03d.bin", i), fmt.Sprintf("orig%03d.bin", i)))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	// No lost updates: every record survives, in memory and on disk.
	items, err := store.ListCommitted(ctx)
	require.NoError(t, err)
	assert.Len(t, items, n)

	reloaded, err := Open(path)
	require.NoError(t, err)
	items, err = reloaded.ListCommitted(ctx)
	require.NoError(t, err)
	assert.Len(t, items, n)
}

func TestStore_PutFailureKeepsPriorState(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "file_mapping.json")
	store, err := Open(path)
	require.NoError(t, err)

	_, err = store.Put(ctx, newRecord("a.txt", "one.txt"))
	require.NoError(t, err)

	// Replace the metadata file with a directory so the temp-file swap fails.
	require.NoError(t, os.Remove(path))
	require.NoError(t, os.Mkdir(path, 0o755))

	_, err = store.Put(ctx, newRecord("b.txt", "two.txt"))
	require.Error(t, err)
	assert.ErrorIs(t, err, repository.ErrStoreUnavailable)

	// The in-memory view did not pick up the failed write.
	_, err = store.Get(ctx, "b.txt")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	items, err := store.ListCommitted(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "a.txt", items[0].SavedName)
}

func TestStore_Ping(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file_mapping.json")
	store, err := Open(path)
	require.NoError(t, err)

	assert.NoError(t, store.Ping(context.Background()))
}
