package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/datavault/datavault-go/internal/model"
)

// AuditRepository appends audit events. Rows are write-once; there are no
// update or single-row delete paths.
type AuditRepository struct {
	db *sql.DB
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Insert appends one audit event.
func (r *AuditRepository) Insert(ctx context.Context, entry *model.AuditLog) error {
	details := entry.Details
	if details == nil {
		details = map[string]any{}
	}
	encoded, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("encoding audit details: %w", err)
	}

	var provider any
	if entry.Provider != "" {
		provider = entry.Provider
	}

	query := `INSERT INTO audit_logs (id, user_id, action, provider, details, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		entry.ID, entry.UserID, entry.Action, provider, encoded, entry.Timestamp)
	return err
}
