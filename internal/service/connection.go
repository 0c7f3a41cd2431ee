package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/datavault/datavault-go/internal/crypto"
	"github.com/datavault/datavault-go/internal/model"
	"github.com/datavault/datavault-go/internal/provider"
)

var (
	ErrUnsupportedProvider = errors.New("unsupported provider")
	ErrAccessTokenRequired = errors.New("access_token is required")
)

// ConnectionService manages the lifecycle of user-provider links.
type ConnectionService struct {
	connections ConnectionStore
	records     RecordStore
	exports     ExportStore
	vault       *crypto.Vault
	providers   *provider.Registry
	audit       *AuditEmitter
	now         func() time.Time
}

// NewConnectionService creates a new ConnectionService.
func NewConnectionService(
	connections ConnectionStore,
	records RecordStore,
	exports ExportStore,
	vault *crypto.Vault,
	providers *provider.Registry,
	audit *AuditEmitter,
) *ConnectionService {
	return &ConnectionService{
		connections: connections,
		records:     records,
		exports:     exports,
		vault:       vault,
		providers:   providers,
		audit:       audit,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Connect stores the result of an OAuth code exchange as a new active
// connection. Any prior connection for the (user, provider) pair is
// deactivated first, so at most one stays active.
func (s *ConnectionService) Connect(ctx context.Context, userID, providerName string, req model.ConnectRequest) (model.ConnectionResponse, error) {
	if _, ok := s.providers.Get(providerName); !ok {
		return model.ConnectionResponse{}, ErrUnsupportedProvider
	}
	if req.AccessToken == "" {
		return model.ConnectionResponse{}, ErrAccessTokenRequired
	}

	encryptedAccess, err := s.vault.Encrypt(req.AccessToken)
	if err != nil {
		return model.ConnectionResponse{}, fmt.Errorf("encrypting access token: %w", err)
	}

	// Not every provider issues a refresh token.
	var encryptedRefresh string
	if req.RefreshToken != "" {
		encryptedRefresh, err = s.vault.Encrypt(req.RefreshToken)
		if err != nil {
			return model.ConnectionResponse{}, fmt.Errorf("encrypting refresh token: %w", err)
		}
	}

	now := s.now()

	expiresAt := req.ExpiresAt
	if expiresAt.IsZero() {
		expiresAt = now.Add(time.Hour)
	}
	providerUserID := req.ProviderUserID
	if providerUserID == "" {
		providerUserID = "unknown"
	}

	conn := &model.Connection{
		ID:                    uuid.NewString(),
		UserID:                userID,
		Provider:              providerName,
		ProviderUserID:        providerUserID,
		EncryptedAccessToken:  encryptedAccess,
		EncryptedRefreshToken: encryptedRefresh,
		TokenExpiresAt:        expiresAt.UTC(),
		SyncStatus:            model.SyncStatusPending,
		IsActive:              true,
		CreatedAt:             now,
	}

	if err := s.connections.Deactivate(ctx, userID, providerName); err != nil {
		return model.ConnectionResponse{}, err
	}
	if err := s.connections.Insert(ctx, conn); err != nil {
		return model.ConnectionResponse{}, err
	}

	s.audit.Record(ctx, userID, model.AuditActionConnect, providerName, map[string]any{
		"provider_user_id": providerUserID,
	})

	return connectionToResponse(conn), nil
}

// List returns all of a user's connections.
func (s *ConnectionService) List(ctx context.Context, userID string) ([]model.ConnectionResponse, error) {
	connections, err := s.connections.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := make([]model.ConnectionResponse, len(connections))
	for i := range connections {
		result[i] = connectionToResponse(&connections[i])
	}
	return result, nil
}

// Disconnect removes all connections for the pair along with the records
// ingested from that provider, and reports the counts.
func (s *ConnectionService) Disconnect(ctx context.Context, userID, providerName string) (model.DisconnectResponse, error) {
	connectionsDeleted, err := s.connections.DeleteByUserProvider(ctx, userID, providerName)
	if err != nil {
		return model.DisconnectResponse{}, err
	}

	recordsDeleted, err := s.records.DeleteByUserProvider(ctx, userID, providerName)
	if err != nil {
		return model.DisconnectResponse{}, err
	}

	s.audit.Record(ctx, userID, model.AuditActionDisconnect, providerName, map[string]any{
		"connections_deleted": connectionsDeleted,
		"records_deleted":     recordsDeleted,
	})

	return model.DisconnectResponse{
		Message:            fmt.Sprintf("Provider %s disconnected", providerName),
		ConnectionsDeleted: connectionsDeleted,
		RecordsDeleted:     recordsDeleted,
	}, nil
}

// DeleteAccount cascades deletion across the user's connections, records
// and exports, emitting one final audit event. The audit trail itself is
// retained.
func (s *ConnectionService) DeleteAccount(ctx context.Context, userID string) error {
	if _, err := s.connections.DeleteByUser(ctx, userID); err != nil {
		return err
	}
	if _, err := s.records.DeleteByUser(ctx, userID); err != nil {
		return err
	}
	if _, err := s.exports.DeleteByUser(ctx, userID); err != nil {
		return err
	}

	s.audit.Record(ctx, userID, model.AuditActionDeleteAccount, "", map[string]any{
		"timestamp": s.now().Format(time.RFC3339),
	})

	return nil
}

func connectionToResponse(conn *model.Connection) model.ConnectionResponse {
	return model.ConnectionResponse{
		ID:             conn.ID,
		Provider:       conn.Provider,
		ProviderUserID: conn.ProviderUserID,
		TokenExpiresAt: conn.TokenExpiresAt,
		LastSyncAt:     conn.LastSyncAt,
		SyncStatus:     conn.SyncStatus,
		SyncError:      conn.SyncError,
		IsActive:       conn.IsActive,
		CreatedAt:      conn.CreatedAt,
	}
}
