package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"filerelay/internal/model"
	"filerelay/internal/repository"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func TestFilePostgres_Put(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewFilePostgres(db)
	ctx := context.Background()

	now := time.Now().UTC()
	rec := &model.FileRecord{
		SavedName:    "abc123.pdf",
		OriginalName: "report.pdf",
		Size:         123,
		ContentType:  "application/pdf",
		Status:       model.StatusCommitted,
		CreatedAt:    now,
	}

	rows := sqlmock.NewRows([]string{"saved_name", "original_name", "size", "content_type", "status", "created_at"}).
		AddRow(rec.SavedName, rec.OriginalName, rec.Size, rec.ContentType, string(rec.Status), rec.CreatedAt)

	mock.ExpectQuery("INSERT INTO files").
		WithArgs(rec.SavedName, rec.OriginalName, rec.Size, rec.ContentType, rec.Status, rec.CreatedAt).
		WillReturnRows(rows)

	result, err := repo.Put(ctx, rec)

	assert.NoError(t, err)
	assert.NotNil(t, result)
	assert.Equal(t, rec.SavedName, result.SavedName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFilePostgres_Put_WriteError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewFilePostgres(db)

	mock.ExpectQuery("INSERT INTO files").
		WillReturnError(sql.ErrConnDone)

	rec := &model.FileRecord{SavedName: "abc.txt", OriginalName: "a.txt", Status: model.StatusCommitted, CreatedAt: time.Now()}
	result, err := repo.Put(context.Background(), rec)

	assert.Error(t, err)
	assert.ErrorIs(t, err, repository.ErrStoreUnavailable)
	assert.Nil(t, result)
}

func TestFilePostgres_Get(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewFilePostgres(db)
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"saved_name", "original_name", "size", "content_type", "status", "created_at"}).
			AddRow("abc.txt", "file.txt", 100, "text/plain", "committed", time.Now())

		mock.ExpectQuery("SELECT (.+) FROM files WHERE saved_name = ?").
			WithArgs("abc.txt").
			WillReturnRows(rows)

		rec, err := repo.Get(ctx, "abc.txt")

		assert.NoError(t, err)
		assert.NotNil(t, rec)
		assert.Equal(t, "file.txt", rec.OriginalName)
		assert.Equal(t, model.StatusCommitted, rec.Status)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM files WHERE saved_name = ?").
			WithArgs("missing.txt").
			WillReturnError(sql.ErrNoRows)

		rec, err := repo.Get(ctx, "missing.txt")

		assert.ErrorIs(t, err, repository.ErrNotFound)
		assert.Nil(t, rec)
	})
}

func TestFilePostgres_ListCommitted(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewFilePostgres(db)

	rows := sqlmock.NewRows([]string{"saved_name", "original_name", "size", "content_type", "status", "created_at"}).
		AddRow("a.txt", "one.txt", 1, "text/plain", "committed", time.Now()).
		AddRow("b.txt", "two.txt", 2, "text/plain", "committed", time.Now())

	mock.ExpectQuery("SELECT (.+) FROM files WHERE status = 'committed' ORDER BY seq ASC").
		WillReturnRows(rows)

	items, err := repo.ListCommitted(context.Background())

	assert.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, "a.txt", items[0].SavedName)
	assert.Equal(t, "b.txt", items[1].SavedName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFilePostgres_Ping(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewFilePostgres(db)

	mock.ExpectPing()
	assert.NoError(t, repo.Ping(context.Background()))
}
