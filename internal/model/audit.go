package model

import "time"

// Audit action tags.
const (
	AuditActionConnect       = "connect"
	AuditActionSync          = "sync"
	AuditActionDisconnect    = "disconnect"
	AuditActionExport        = "export"
	AuditActionDeleteAccount = "delete_account"
)

// AuditLog is one append-only event describing a significant action.
// Provider is empty for actions not tied to a single provider.
type AuditLog struct {
	ID        string
	UserID    string
	Action    string
	Provider  string
	Details   map[string]any
	Timestamp time.Time
}
