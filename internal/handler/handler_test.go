package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/datavault/datavault-go/internal/crypto"
	"github.com/datavault/datavault-go/internal/middleware"
	"github.com/datavault/datavault-go/internal/model"
	"github.com/datavault/datavault-go/internal/provider"
	"github.com/datavault/datavault-go/internal/repository"
	"github.com/datavault/datavault-go/internal/service"
	"github.com/datavault/datavault-go/internal/worker"
)

// Stub stores backing real services. Only the paths the handler tests
// exercise are populated; everything else returns empty results.

type stubConnectionStore struct {
	active *model.Connection
}

func (s *stubConnectionStore) Insert(ctx context.Context, conn *model.Connection) error { return nil }

func (s *stubConnectionStore) GetActive(ctx context.Context, userID, provider string) (*model.Connection, error) {
	if s.active != nil && s.active.UserID == userID && s.active.Provider == provider {
		return s.active, nil
	}
	return nil, repository.ErrConnectionNotFound
}

func (s *stubConnectionStore) ListByUser(ctx context.Context, userID string) ([]model.Connection, error) {
	return nil, nil
}

func (s *stubConnectionStore) Deactivate(ctx context.Context, userID, provider string) error {
	return nil
}

func (s *stubConnectionStore) MarkSyncing(ctx context.Context, id string) error { return nil }

func (s *stubConnectionStore) MarkOutcome(ctx context.Context, id, status string, syncErr *string, at time.Time) error {
	return nil
}

func (s *stubConnectionStore) DeleteByUserProvider(ctx context.Context, userID, provider string) (int64, error) {
	return 0, nil
}

func (s *stubConnectionStore) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	return 0, nil
}

type stubRecordStore struct{}

func (stubRecordStore) Insert(ctx context.Context, rec *model.Record) error { return nil }

func (stubRecordStore) ExistsByHash(ctx context.Context, hash string) (bool, error) {
	return false, nil
}

func (stubRecordStore) List(ctx context.Context, userID string, filter model.RecordFilter) ([]model.Record, error) {
	if filter.Cursor != "" {
		return nil, repository.ErrRecordNotFound
	}
	return nil, nil
}

func (stubRecordStore) ListAllByUser(ctx context.Context, userID string) ([]model.Record, error) {
	return nil, nil
}

func (stubRecordStore) DeleteByUserProvider(ctx context.Context, userID, provider string) (int64, error) {
	return 0, nil
}

func (stubRecordStore) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	return 0, nil
}

type stubExportStore struct {
	export *model.Export
}

func (s *stubExportStore) Insert(ctx context.Context, exp *model.Export) error { return nil }

func (s *stubExportStore) GetByToken(ctx context.Context, token string) (*model.Export, error) {
	if s.export != nil && s.export.DownloadToken == token {
		return s.export, nil
	}
	return nil, repository.ErrExportNotFound
}

func (s *stubExportStore) ListByUser(ctx context.Context, userID string, limit int) ([]model.Export, error) {
	return nil, nil
}

func (s *stubExportStore) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	return 0, nil
}

type stubBlobStore struct{}

func (stubBlobStore) PutBlob(ctx context.Context, data []byte) (string, error) { return "blob-1", nil }

func (stubBlobStore) GetBlob(ctx context.Context, id string) ([]byte, error) {
	return []byte("archive-bytes"), nil
}

type stubAuditStore struct{}

func (stubAuditStore) Insert(ctx context.Context, entry *model.AuditLog) error { return nil }

type noopAdapter struct{ name string }

func (a noopAdapter) Name() string { return a.name }

func (a noopAdapter) Fetch(ctx context.Context, accessToken string) ([]provider.RawItem, error) {
	return nil, nil
}

func (a noopAdapter) Normalize(raw provider.RawItem) (provider.Item, error) {
	return provider.Item{}, nil
}

type dropQueue struct{}

func (dropQueue) Submit(name string, task worker.Task) {}

func newTestVault(t *testing.T) *crypto.Vault {
	t.Helper()
	vault, err := crypto.NewVault("handler-test-secret")
	if err != nil {
		t.Fatalf("NewVault: %v", err)
	}
	return vault
}

func withTestUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		next(w, r.WithContext(middleware.WithUserID(r.Context(), "user-1")))
	}
}

func TestSyncTriggerAck(t *testing.T) {
	vault := newTestVault(t)
	encrypted, err := vault.Encrypt("token")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	connections := &stubConnectionStore{active: &model.Connection{
		ID: "conn-1", UserID: "user-1", Provider: "spotify",
		EncryptedAccessToken: encrypted, IsActive: true,
	}}
	svc := service.NewSyncService(
		connections, stubRecordStore{}, vault,
		provider.NewRegistry(noopAdapter{name: "spotify"}),
		service.NewAuditEmitter(stubAuditStore{}),
		dropQueue{},
	)
	h := NewSyncHandler(svc)

	r := chi.NewRouter()
	r.Post("/api/v1/sync/{provider}", withTestUser(h.HandleTrigger))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/sync/spotify", nil))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body["status"] != model.SyncStatusPending {
		t.Errorf("ack status = %q, want %q", body["status"], model.SyncStatusPending)
	}
	if body["message"] == "" {
		t.Error("ack missing message")
	}
}

func TestSyncTriggerUnknownConnection(t *testing.T) {
	vault := newTestVault(t)
	svc := service.NewSyncService(
		&stubConnectionStore{}, stubRecordStore{}, vault,
		provider.NewRegistry(noopAdapter{name: "spotify"}),
		service.NewAuditEmitter(stubAuditStore{}),
		dropQueue{},
	)
	h := NewSyncHandler(svc)

	r := chi.NewRouter()
	r.Post("/api/v1/sync/{provider}", withTestUser(h.HandleTrigger))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/sync/spotify", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestDownloadStatusMapping(t *testing.T) {
	now := time.Now().UTC()
	exports := &stubExportStore{export: &model.Export{
		ID: "exp-1", UserID: "user-1", FileName: "archive.zip",
		DownloadToken: "valid-token", BlobID: "blob-1",
		ExpiresAt: now.Add(time.Hour), CreatedAt: now,
	}}
	svc := service.NewExportService(stubRecordStore{}, exports, stubBlobStore{},
		service.NewAuditEmitter(stubAuditStore{}))
	h := NewExportHandler(svc)

	r := chi.NewRouter()
	r.Get("/api/v1/exports/download/{token}", h.HandleDownload)

	tests := []struct {
		name       string
		token      string
		expired    bool
		wantStatus int
	}{
		{"valid token", "valid-token", false, http.StatusOK},
		{"unknown token", "wrong-token", false, http.StatusNotFound},
		{"expired token", "valid-token", true, http.StatusGone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.expired {
				exports.export.ExpiresAt = now.Add(-time.Hour)
			} else {
				exports.export.ExpiresAt = now.Add(time.Hour)
			}

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/exports/download/"+tt.token, nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK {
				if got := rec.Header().Get("Content-Type"); got != "application/zip" {
					t.Errorf("content type = %q, want application/zip", got)
				}
				if rec.Header().Get("Content-Disposition") == "" {
					t.Error("missing content disposition")
				}
			}
		})
	}
}

func TestUnauthenticatedContext(t *testing.T) {
	svc := service.NewRecordService(stubRecordStore{}, nil)
	h := NewRecordHandler(svc)

	rec := httptest.NewRecorder()
	h.HandleList(rec, httptest.NewRequest(http.MethodGet, "/api/v1/records", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestRecordListBadCursor(t *testing.T) {
	svc := service.NewRecordService(stubRecordStore{}, nil)
	h := NewRecordHandler(svc)

	r := chi.NewRouter()
	r.Get("/api/v1/records", withTestUser(h.HandleList))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/records?cursor=bogus", nil))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
