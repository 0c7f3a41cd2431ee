package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/datavault/datavault-go/internal/model"
)

// AuditEmitter appends immutable audit events. Audit is best-effort
// observability: a failed write is logged and swallowed so it never fails
// the action it describes.
type AuditEmitter struct {
	store AuditStore
}

// NewAuditEmitter creates a new AuditEmitter.
func NewAuditEmitter(store AuditStore) *AuditEmitter {
	return &AuditEmitter{store: store}
}

// Record appends one event. Provider may be empty for actions not tied to a
// single provider.
func (e *AuditEmitter) Record(ctx context.Context, userID, action, provider string, details map[string]any) {
	entry := &model.AuditLog{
		ID:        uuid.NewString(),
		UserID:    userID,
		Action:    action,
		Provider:  provider,
		Details:   details,
		Timestamp: time.Now().UTC(),
	}

	if err := e.store.Insert(ctx, entry); err != nil {
		slog.Warn("audit write failed",
			"user_id", userID, "action", action, "provider", provider, "error", err)
	}
}
