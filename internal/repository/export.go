package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/datavault/datavault-go/internal/model"
)

var (
	ErrExportNotFound = errors.New("export not found")
	ErrBlobNotFound   = errors.New("export blob not found")
)

const exportColumns = `id, user_id, file_name, file_size, download_token,
	expires_at, created_at, blob_id`

// ExportRepository handles export metadata and the archive blobs they
// reference.
type ExportRepository struct {
	db *sql.DB
}

// NewExportRepository creates a new ExportRepository.
func NewExportRepository(db *sql.DB) *ExportRepository {
	return &ExportRepository{db: db}
}

// Insert stores a new export metadata row.
func (r *ExportRepository) Insert(ctx context.Context, exp *model.Export) error {
	query := `INSERT INTO exports (` + exportColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		exp.ID, exp.UserID, exp.FileName, exp.FileSize, exp.DownloadToken,
		exp.ExpiresAt, exp.CreatedAt, exp.BlobID,
	)
	return err
}

// GetByToken retrieves an export by its download token, or
// ErrExportNotFound. Expiry is the caller's concern: the row keeps existing
// past its expiry, it just must not be served.
func (r *ExportRepository) GetByToken(ctx context.Context, token string) (*model.Export, error) {
	query := `SELECT ` + exportColumns + ` FROM exports WHERE download_token = ?`

	exp := &model.Export{}
	err := r.db.QueryRowContext(ctx, query, token).Scan(
		&exp.ID, &exp.UserID, &exp.FileName, &exp.FileSize, &exp.DownloadToken,
		&exp.ExpiresAt, &exp.CreatedAt, &exp.BlobID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrExportNotFound
		}
		return nil, err
	}

	return exp, nil
}

// ListByUser retrieves a user's exports, newest first.
func (r *ExportRepository) ListByUser(ctx context.Context, userID string, limit int) ([]model.Export, error) {
	query := `SELECT ` + exportColumns + ` FROM exports
		WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exports []model.Export
	for rows.Next() {
		var e model.Export
		if err := rows.Scan(
			&e.ID, &e.UserID, &e.FileName, &e.FileSize, &e.DownloadToken,
			&e.ExpiresAt, &e.CreatedAt, &e.BlobID,
		); err != nil {
			return nil, err
		}
		exports = append(exports, e)
	}

	return exports, rows.Err()
}

// DeleteByUser removes a user's export rows and their archive blobs.
func (r *ExportRepository) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM export_blobs
		WHERE id IN (SELECT blob_id FROM exports WHERE user_id = ?)`, userID)
	if err != nil {
		return 0, err
	}

	result, err := r.db.ExecContext(ctx,
		`DELETE FROM exports WHERE user_id = ?`, userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// PutBlob stores archive bytes and returns the handle to retrieve them.
func (r *ExportRepository) PutBlob(ctx context.Context, data []byte) (string, error) {
	id := uuid.NewString()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO export_blobs (id, data, created_at) VALUES (?, ?, ?)`,
		id, data, time.Now().UTC())
	if err != nil {
		return "", err
	}
	return id, nil
}

// GetBlob retrieves archive bytes by handle.
func (r *ExportRepository) GetBlob(ctx context.Context, id string) ([]byte, error) {
	var data []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT data FROM export_blobs WHERE id = ?`, id).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBlobNotFound
		}
		return nil, err
	}
	return data, nil
}
