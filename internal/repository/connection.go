package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/datavault/datavault-go/internal/model"
)

var ErrConnectionNotFound = errors.New("connection not found")

const connectionColumns = `id, user_id, provider, provider_user_id,
	encrypted_access_token, encrypted_refresh_token, token_expires_at,
	last_sync_at, sync_status, sync_error, is_active, created_at`

// ConnectionRepository handles connection persistence.
type ConnectionRepository struct {
	db *sql.DB
}

// NewConnectionRepository creates a new ConnectionRepository.
func NewConnectionRepository(db *sql.DB) *ConnectionRepository {
	return &ConnectionRepository{db: db}
}

// Insert stores a new connection row.
func (r *ConnectionRepository) Insert(ctx context.Context, conn *model.Connection) error {
	query := `INSERT INTO connections (` + connectionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		conn.ID, conn.UserID, conn.Provider, conn.ProviderUserID,
		conn.EncryptedAccessToken, conn.EncryptedRefreshToken, conn.TokenExpiresAt,
		conn.LastSyncAt, conn.SyncStatus, conn.SyncError, conn.IsActive, conn.CreatedAt,
	)
	return err
}

// GetActive retrieves the single active connection for a (user, provider)
// pair, or ErrConnectionNotFound.
func (r *ConnectionRepository) GetActive(ctx context.Context, userID, provider string) (*model.Connection, error) {
	query := `SELECT ` + connectionColumns + ` FROM connections
		WHERE user_id = ? AND provider = ? AND is_active = TRUE
		ORDER BY created_at DESC LIMIT 1`

	conn := &model.Connection{}
	err := r.db.QueryRowContext(ctx, query, userID, provider).Scan(
		&conn.ID, &conn.UserID, &conn.Provider, &conn.ProviderUserID,
		&conn.EncryptedAccessToken, &conn.EncryptedRefreshToken, &conn.TokenExpiresAt,
		&conn.LastSyncAt, &conn.SyncStatus, &conn.SyncError, &conn.IsActive, &conn.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrConnectionNotFound
		}
		return nil, err
	}

	return conn, nil
}

// ListByUser retrieves all of a user's connections, newest first.
func (r *ConnectionRepository) ListByUser(ctx context.Context, userID string) ([]model.Connection, error) {
	query := `SELECT ` + connectionColumns + ` FROM connections
		WHERE user_id = ? ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var connections []model.Connection
	for rows.Next() {
		var c model.Connection
		if err := rows.Scan(
			&c.ID, &c.UserID, &c.Provider, &c.ProviderUserID,
			&c.EncryptedAccessToken, &c.EncryptedRefreshToken, &c.TokenExpiresAt,
			&c.LastSyncAt, &c.SyncStatus, &c.SyncError, &c.IsActive, &c.CreatedAt,
		); err != nil {
			return nil, err
		}
		connections = append(connections, c)
	}

	return connections, rows.Err()
}

// Deactivate clears the active flag on any current connection for the pair,
// preserving the at-most-one-active invariant when a new one is inserted.
func (r *ConnectionRepository) Deactivate(ctx context.Context, userID, provider string) error {
	query := `UPDATE connections SET is_active = FALSE
		WHERE user_id = ? AND provider = ? AND is_active = TRUE`

	_, err := r.db.ExecContext(ctx, query, userID, provider)
	return err
}

// MarkSyncing moves a connection into the syncing state and clears the
// previous error.
func (r *ConnectionRepository) MarkSyncing(ctx context.Context, id string) error {
	query := `UPDATE connections SET sync_status = ?, sync_error = NULL WHERE id = ?`

	_, err := r.db.ExecContext(ctx, query, model.SyncStatusSyncing, id)
	return err
}

// MarkOutcome lands a sync run on success or error. The last-sync timestamp
// is stamped either way: a failed attempt still happened.
func (r *ConnectionRepository) MarkOutcome(ctx context.Context, id, status string, syncErr *string, at time.Time) error {
	query := `UPDATE connections SET sync_status = ?, sync_error = ?, last_sync_at = ? WHERE id = ?`

	_, err := r.db.ExecContext(ctx, query, status, syncErr, at, id)
	return err
}

// DeleteByUserProvider removes all connections for the pair and returns the
// count removed.
func (r *ConnectionRepository) DeleteByUserProvider(ctx context.Context, userID, provider string) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM connections WHERE user_id = ? AND provider = ?`, userID, provider)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// DeleteByUser removes all of a user's connections.
func (r *ConnectionRepository) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM connections WHERE user_id = ?`, userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
