package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/datavault/datavault-go/internal/model"
)

var (
	ErrDuplicateHash  = errors.New("record with this hash already exists")
	ErrRecordNotFound = errors.New("record not found")
)

// mysqlDuplicateEntry is the server error code for a UNIQUE KEY violation.
const mysqlDuplicateEntry = 1062

const recordColumns = `id, user_id, dataset, provider, provider_record_id,
	recorded_at, body, hash, created_at`

// RecordRepository handles record persistence. Records are insert-only; the
// UNIQUE KEY on hash rejects duplicate ingestions at the storage layer.
type RecordRepository struct {
	db *sql.DB
}

// NewRecordRepository creates a new RecordRepository.
func NewRecordRepository(db *sql.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

// Insert stores a new record. A hash collision with an existing row returns
// ErrDuplicateHash so the caller can count the item as existing.
func (r *RecordRepository) Insert(ctx context.Context, rec *model.Record) error {
	body, err := json.Marshal(rec.Body)
	if err != nil {
		return fmt.Errorf("encoding record body: %w", err)
	}

	query := `INSERT INTO records (` + recordColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		rec.ID, rec.UserID, rec.Dataset, rec.Provider, rec.ProviderRecordID,
		rec.RecordedAt, body, rec.Hash, rec.CreatedAt,
	)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
			return ErrDuplicateHash
		}
		return err
	}

	return nil
}

// ExistsByHash reports whether a record with the given dedup hash is stored.
func (r *RecordRepository) ExistsByHash(ctx context.Context, hash string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM records WHERE hash = ?`, hash).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// List returns one page of a user's records ordered by event time
// descending. The cursor is the ID of the last record on the previous page;
// it is resolved to its (recorded_at, id) pair for keyset pagination.
func (r *RecordRepository) List(ctx context.Context, userID string, filter model.RecordFilter) ([]model.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM records WHERE user_id = ?`
	args := []any{userID}

	if filter.Dataset != "" {
		query += ` AND dataset = ?`
		args = append(args, filter.Dataset)
	}
	if filter.Start != nil {
		query += ` AND recorded_at >= ?`
		args = append(args, *filter.Start)
	}
	if filter.End != nil {
		query += ` AND recorded_at <= ?`
		args = append(args, *filter.End)
	}

	if filter.Cursor != "" {
		var cursorAt time.Time
		err := r.db.QueryRowContext(ctx,
			`SELECT recorded_at FROM records WHERE id = ? AND user_id = ?`,
			filter.Cursor, userID).Scan(&cursorAt)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, ErrRecordNotFound
			}
			return nil, err
		}
		query += ` AND (recorded_at < ? OR (recorded_at = ? AND id < ?))`
		args = append(args, cursorAt, cursorAt, filter.Cursor)
	}

	limit := filter.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	query += ` ORDER BY recorded_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	return r.queryRecords(ctx, query, args...)
}

// ListAllByUser returns every record a user owns, ordered by event time
// descending. Used by the export packager.
func (r *RecordRepository) ListAllByUser(ctx context.Context, userID string) ([]model.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM records
		WHERE user_id = ? ORDER BY recorded_at DESC, id DESC`
	return r.queryRecords(ctx, query, userID)
}

// DeleteByUserProvider removes all of a user's records from one provider.
func (r *RecordRepository) DeleteByUserProvider(ctx context.Context, userID, provider string) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM records WHERE user_id = ? AND provider = ?`, userID, provider)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// DeleteByUser removes all of a user's records.
func (r *RecordRepository) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM records WHERE user_id = ?`, userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// CountSince counts a user's records in one dataset with event time at or
// after since.
func (r *RecordRepository) CountSince(ctx context.Context, userID, dataset string, since time.Time) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM records WHERE user_id = ? AND dataset = ? AND recorded_at >= ?`,
		userID, dataset, since).Scan(&count)
	return count, err
}

// TopArtists groups the tracks dataset by the artist field and returns the
// most-played artists in the window.
func (r *RecordRepository) TopArtists(ctx context.Context, userID string, since time.Time, limit int) ([]model.ArtistCount, error) {
	query := `SELECT JSON_UNQUOTE(JSON_EXTRACT(body, '$.artist')) AS artist, COUNT(*) AS plays
		FROM records
		WHERE user_id = ? AND dataset = 'tracks' AND recorded_at >= ?
		GROUP BY artist
		ORDER BY plays DESC, artist ASC
		LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, userID, since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var artists []model.ArtistCount
	for rows.Next() {
		var a model.ArtistCount
		if err := rows.Scan(&a.Artist, &a.Count); err != nil {
			return nil, err
		}
		artists = append(artists, a)
	}

	return artists, rows.Err()
}

// WorkoutTotals sums distance and duration over the workouts dataset in the
// window.
func (r *RecordRepository) WorkoutTotals(ctx context.Context, userID string, since time.Time) (distanceKM, durationS float64, err error) {
	query := `SELECT
		COALESCE(SUM(CAST(JSON_EXTRACT(body, '$.distance_km') AS DOUBLE)), 0),
		COALESCE(SUM(CAST(JSON_EXTRACT(body, '$.duration_s') AS DOUBLE)), 0)
		FROM records
		WHERE user_id = ? AND dataset = 'workouts' AND recorded_at >= ?`

	err = r.db.QueryRowContext(ctx, query, userID, since).Scan(&distanceKM, &durationS)
	return distanceKM, durationS, err
}

func (r *RecordRepository) queryRecords(ctx context.Context, query string, args ...any) ([]model.Record, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.Record
	for rows.Next() {
		var rec model.Record
		var body []byte
		if err := rows.Scan(
			&rec.ID, &rec.UserID, &rec.Dataset, &rec.Provider, &rec.ProviderRecordID,
			&rec.RecordedAt, &body, &rec.Hash, &rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(body, &rec.Body); err != nil {
			return nil, fmt.Errorf("decoding record body: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}
