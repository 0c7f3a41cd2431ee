package model

import "time"

// Sync status values for a Connection. Every sync run moves the connection
// through syncing and lands on success or error; the next run re-enters
// syncing regardless of the previous outcome.
const (
	SyncStatusPending = "pending"
	SyncStatusSyncing = "syncing"
	SyncStatusSuccess = "success"
	SyncStatusError   = "error"
)

// Connection represents a user's link to one external provider, holding
// encrypted credentials and sync state. At most one active connection exists
// per (user, provider) pair.
type Connection struct {
	ID                    string
	UserID                string
	Provider              string
	ProviderUserID        string
	EncryptedAccessToken  string
	EncryptedRefreshToken string
	TokenExpiresAt        time.Time
	LastSyncAt            *time.Time
	SyncStatus            string
	SyncError             *string
	IsActive              bool
	CreatedAt             time.Time
}

// ConnectRequest carries the result of an OAuth code exchange performed by
// the authorization layer. The refresh token may be absent for providers
// that do not issue one.
type ConnectRequest struct {
	AccessToken    string    `json:"access_token"`
	RefreshToken   string    `json:"refresh_token"`
	ExpiresAt      time.Time `json:"expires_at"`
	ProviderUserID string    `json:"provider_user_id"`
}

// ConnectionResponse represents connection data safe for API responses
// (token ciphertext is never returned).
type ConnectionResponse struct {
	ID             string     `json:"id"`
	Provider       string     `json:"provider"`
	ProviderUserID string     `json:"provider_user_id"`
	TokenExpiresAt time.Time  `json:"token_expires_at"`
	LastSyncAt     *time.Time `json:"last_sync_at"`
	SyncStatus     string     `json:"sync_status"`
	SyncError      *string    `json:"sync_error"`
	IsActive       bool       `json:"is_active"`
	CreatedAt      time.Time  `json:"created_at"`
}

// DisconnectResponse reports what a disconnect removed.
type DisconnectResponse struct {
	Message            string `json:"message"`
	ConnectionsDeleted int64  `json:"connections_deleted"`
	RecordsDeleted     int64  `json:"records_deleted"`
}
