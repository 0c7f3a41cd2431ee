package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/datavault/datavault-go/internal/crypto"
	"github.com/datavault/datavault-go/internal/dedup"
	"github.com/datavault/datavault-go/internal/model"
	"github.com/datavault/datavault-go/internal/provider"
	"github.com/datavault/datavault-go/internal/repository"
	"github.com/datavault/datavault-go/internal/worker"
)

var ErrConnectionNotFound = errors.New("connection not found")

// SyncService orchestrates sync runs: it loads the active connection,
// decrypts credentials, pulls a page from the provider adapter, resolves
// each item through the dedup index and drives the connection state machine.
type SyncService struct {
	connections ConnectionStore
	records     RecordStore
	index       *dedup.Index
	vault       *crypto.Vault
	providers   *provider.Registry
	audit       *AuditEmitter
	queue       worker.Queue
	now         func() time.Time
}

// NewSyncService creates a new SyncService.
func NewSyncService(
	connections ConnectionStore,
	records RecordStore,
	vault *crypto.Vault,
	providers *provider.Registry,
	audit *AuditEmitter,
	queue worker.Queue,
) *SyncService {
	return &SyncService{
		connections: connections,
		records:     records,
		index:       dedup.NewIndex(records),
		vault:       vault,
		providers:   providers,
		audit:       audit,
		queue:       queue,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Trigger verifies an active connection exists, then hands the run to the
// worker queue. The caller gets its acknowledgement before the run executes;
// the outcome lands on the connection row.
func (s *SyncService) Trigger(ctx context.Context, userID, providerName string) error {
	if _, err := s.connections.GetActive(ctx, userID, providerName); err != nil {
		if errors.Is(err, repository.ErrConnectionNotFound) {
			return ErrConnectionNotFound
		}
		return err
	}

	s.queue.Submit("sync:"+providerName, func(ctx context.Context) {
		s.Run(ctx, userID, providerName)
	})

	return nil
}

// Run executes one sync run. It never returns an error: failures are
// recorded on the connection and in the audit trail. Exactly one audit
// event is emitted per run.
//
// Concurrent runs for the same pair are not excluded; the records table's
// hash constraint prevents duplicate rows and the connection reflects
// whichever run finishes last.
func (s *SyncService) Run(ctx context.Context, userID, providerName string) {
	conn, err := s.connections.GetActive(ctx, userID, providerName)
	if err != nil {
		slog.Warn("sync run skipped: no active connection",
			"user_id", userID, "provider", providerName, "error", err)
		return
	}

	if err := s.connections.MarkSyncing(ctx, conn.ID); err != nil {
		slog.Error("sync run aborted: cannot mark syncing",
			"connection_id", conn.ID, "error", err)
		return
	}

	newCount, existingCount, runErr := s.ingest(ctx, conn)
	finishedAt := s.now()

	if runErr != nil {
		msg := runErr.Error()
		if err := s.connections.MarkOutcome(ctx, conn.ID, model.SyncStatusError, &msg, finishedAt); err != nil {
			slog.Error("failed to record sync error state", "connection_id", conn.ID, "error", err)
		}
		s.audit.Record(ctx, userID, model.AuditActionSync, providerName, map[string]any{"error": msg})
		slog.Warn("sync run failed",
			"user_id", userID, "provider", providerName, "error", runErr,
			"new", newCount, "existing", existingCount)
		return
	}

	if err := s.connections.MarkOutcome(ctx, conn.ID, model.SyncStatusSuccess, nil, finishedAt); err != nil {
		slog.Error("failed to record sync success state", "connection_id", conn.ID, "error", err)
	}
	s.audit.Record(ctx, userID, model.AuditActionSync, providerName, map[string]any{
		"new":      newCount,
		"existing": existingCount,
	})
	slog.Info("sync run completed",
		"user_id", userID, "provider", providerName,
		"new", newCount, "existing", existingCount)
}

// ingest fetches and normalizes the provider page, persisting items the
// dedup index has not seen. Partial inserts before a failure are kept; the
// next run re-fetches the page and the hash constraint collapses overlaps.
func (s *SyncService) ingest(ctx context.Context, conn *model.Connection) (newCount, existingCount int, err error) {
	adapter, ok := s.providers.Get(conn.Provider)
	if !ok {
		return 0, 0, fmt.Errorf("unsupported provider %q", conn.Provider)
	}

	accessToken, err := s.vault.Decrypt(conn.EncryptedAccessToken)
	if err != nil {
		return 0, 0, err
	}

	raws, err := adapter.Fetch(ctx, accessToken)
	if err != nil {
		return 0, 0, err
	}

	for _, raw := range raws {
		item, err := adapter.Normalize(raw)
		if err != nil {
			return newCount, existingCount, err
		}

		hash := dedup.Hash(conn.Provider, item.ProviderRecordID)

		exists, err := s.index.Exists(ctx, hash)
		if err != nil {
			return newCount, existingCount, err
		}
		if exists {
			existingCount++
			continue
		}

		rec := &model.Record{
			ID:               uuid.NewString(),
			UserID:           conn.UserID,
			Dataset:          item.Dataset,
			Provider:         conn.Provider,
			ProviderRecordID: item.ProviderRecordID,
			RecordedAt:       item.RecordedAt,
			Body:             item.Fields,
			Hash:             hash,
			CreatedAt:        s.now(),
		}

		if err := s.records.Insert(ctx, rec); err != nil {
			// A concurrent run got there first; the unique hash is the
			// final arbiter and this item counts as existing.
			if errors.Is(err, repository.ErrDuplicateHash) {
				existingCount++
				continue
			}
			return newCount, existingCount, err
		}
		newCount++
	}

	return newCount, existingCount, nil
}
