package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"filerelay/internal/model"
	"filerelay/internal/repository"
)

// FilePostgres is a PostgreSQL implementation of repository.FileRepository.
// It uses database/sql with parameterized queries and contains no business logic.
// Writes are linearized per saved name by the row-level upsert.
type FilePostgres struct {
	db *sql.DB
}

// NewFilePostgres creates a new FilePostgres repository.
func NewFilePostgres(db *sql.DB) *FilePostgres {
	return &FilePostgres{db: db}
}

var _ repository.FileRepository = (*FilePostgres)(nil)

// Put upserts the record keyed by saved_name and returns the stored row.
func (r *FilePostgres) Put(ctx context.Context, record *model.FileRecord) (*model.FileRecord, error) {
	const q = `
		INSERT INTO files (saved_name, original_name, size, content_type, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (saved_name) DO UPDATE
		SET original_name = EXCLUDED.original_name,
		    size          = EXCLUDED.size,
		    content_type  = EXCLUDED.content_type,
		    status        = EXCLUDED.status
		RETURNING saved_name, original_name, size, content_type, status, created_at
	`
	row := r.db.QueryRowContext(ctx, q,
		record.SavedName,
		record.OriginalName,
		record.Size,
		record.ContentType,
		record.Status,
		record.CreatedAt,
	)
	var out model.FileRecord
	if err := row.Scan(
		&out.SavedName,
		&out.OriginalName,
		&out.Size,
		&out.ContentType,
		&out.Status,
		&out.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("%w: %v", repository.ErrStoreUnavailable, err)
	}
	return &out, nil
}

// Get fetches a single record by its saved name.
func (r *FilePostgres) Get(ctx context.Context, savedName string) (*model.FileRecord, error) {
	const q = `
		SELECT saved_name, original_name, size, content_type, status, created_at
		FROM files
		WHERE saved_name = $1
	`
	row := r.db.QueryRowContext(ctx, q, savedName)
	var rec model.FileRecord
	if err := row.Scan(
		&rec.SavedName,
		&rec.OriginalName,
		&rec.Size,
		&rec.ContentType,
		&rec.Status,
		&rec.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// ListCommitted returns committed records ordered by insertion sequence.
func (r *FilePostgres) ListCommitted(ctx context.Context) ([]model.FileRecord, error) {
	const q = `
		SELECT saved_name, original_name, size, content_type, status, created_at
		FROM files
		WHERE status = 'committed'
		ORDER BY seq ASC
	`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.FileRecord, 0)
	for rows.Next() {
		var rec model.FileRecord
		if err := rows.Scan(
			&rec.SavedName,
			&rec.OriginalName,
			&rec.Size,
			&rec.ContentType,
			&rec.Status,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Ping checks database connectivity.
func (r *FilePostgres) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
