package service

import (
	"context"
	"time"

	"github.com/datavault/datavault-go/internal/model"
)

// Storage contracts consumed by the services. The repository package
// provides the MySQL implementations; tests substitute in-memory fakes.

type ConnectionStore interface {
	Insert(ctx context.Context, conn *model.Connection) error
	GetActive(ctx context.Context, userID, provider string) (*model.Connection, error)
	ListByUser(ctx context.Context, userID string) ([]model.Connection, error)
	Deactivate(ctx context.Context, userID, provider string) error
	MarkSyncing(ctx context.Context, id string) error
	MarkOutcome(ctx context.Context, id, status string, syncErr *string, at time.Time) error
	DeleteByUserProvider(ctx context.Context, userID, provider string) (int64, error)
	DeleteByUser(ctx context.Context, userID string) (int64, error)
}

type RecordStore interface {
	Insert(ctx context.Context, rec *model.Record) error
	ExistsByHash(ctx context.Context, hash string) (bool, error)
	List(ctx context.Context, userID string, filter model.RecordFilter) ([]model.Record, error)
	ListAllByUser(ctx context.Context, userID string) ([]model.Record, error)
	DeleteByUserProvider(ctx context.Context, userID, provider string) (int64, error)
	DeleteByUser(ctx context.Context, userID string) (int64, error)
}

type InsightStore interface {
	CountSince(ctx context.Context, userID, dataset string, since time.Time) (int64, error)
	TopArtists(ctx context.Context, userID string, since time.Time, limit int) ([]model.ArtistCount, error)
	WorkoutTotals(ctx context.Context, userID string, since time.Time) (distanceKM, durationS float64, err error)
}

type AuditStore interface {
	Insert(ctx context.Context, entry *model.AuditLog) error
}

type ExportStore interface {
	Insert(ctx context.Context, exp *model.Export) error
	GetByToken(ctx context.Context, token string) (*model.Export, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]model.Export, error)
	DeleteByUser(ctx context.Context, userID string) (int64, error)
}

// BlobStore holds opaque archive bytes addressed by a handle.
type BlobStore interface {
	PutBlob(ctx context.Context, data []byte) (string, error)
	GetBlob(ctx context.Context, id string) ([]byte, error)
}
