package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/datavault/datavault-go/internal/model"
	"github.com/datavault/datavault-go/internal/provider"
	"github.com/datavault/datavault-go/internal/repository"
	"github.com/datavault/datavault-go/internal/worker"
)

// inlineQueue runs submitted tasks synchronously so tests observe outcomes
// without waiting on a pool.
type inlineQueue struct{}

func (inlineQueue) Submit(name string, task worker.Task) {
	task(context.Background())
}

type fakeConnectionStore struct {
	mu          sync.Mutex
	connections []*model.Connection
	insertErr   error
}

func (f *fakeConnectionStore) Insert(ctx context.Context, conn *model.Connection) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	stored := *conn
	f.connections = append(f.connections, &stored)
	return nil
}

func (f *fakeConnectionStore) GetActive(ctx context.Context, userID, provider string) (*model.Connection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.connections) - 1; i >= 0; i-- {
		c := f.connections[i]
		if c.UserID == userID && c.Provider == provider && c.IsActive {
			out := *c
			return &out, nil
		}
	}
	return nil, repository.ErrConnectionNotFound
}

func (f *fakeConnectionStore) ListByUser(ctx context.Context, userID string) ([]model.Connection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Connection
	for _, c := range f.connections {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeConnectionStore) Deactivate(ctx context.Context, userID, provider string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.connections {
		if c.UserID == userID && c.Provider == provider {
			c.IsActive = false
		}
	}
	return nil
}

func (f *fakeConnectionStore) MarkSyncing(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.connections {
		if c.ID == id {
			c.SyncStatus = model.SyncStatusSyncing
			c.SyncError = nil
			return nil
		}
	}
	return repository.ErrConnectionNotFound
}

func (f *fakeConnectionStore) MarkOutcome(ctx context.Context, id, status string, syncErr *string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.connections {
		if c.ID == id {
			c.SyncStatus = status
			c.SyncError = syncErr
			stamp := at
			c.LastSyncAt = &stamp
			return nil
		}
	}
	return repository.ErrConnectionNotFound
}

func (f *fakeConnectionStore) DeleteByUserProvider(ctx context.Context, userID, provider string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var kept []*model.Connection
	var deleted int64
	for _, c := range f.connections {
		if c.UserID == userID && c.Provider == provider {
			deleted++
			continue
		}
		kept = append(kept, c)
	}
	f.connections = kept
	return deleted, nil
}

func (f *fakeConnectionStore) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var kept []*model.Connection
	var deleted int64
	for _, c := range f.connections {
		if c.UserID == userID {
			deleted++
			continue
		}
		kept = append(kept, c)
	}
	f.connections = kept
	return deleted, nil
}

func (f *fakeConnectionStore) get(id string) *model.Connection {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.connections {
		if c.ID == id {
			out := *c
			return &out
		}
	}
	return nil
}

type fakeRecordStore struct {
	mu        sync.Mutex
	records   []model.Record
	byHash    map[string]bool
	insertErr error

	// hideExistence makes ExistsByHash report misses even for seeded
	// hashes, forcing Insert to surface the unique-key violation.
	hideExistence bool
}

func newFakeRecordStore() *fakeRecordStore {
	return &fakeRecordStore{byHash: make(map[string]bool)}
}

func (f *fakeRecordStore) Insert(ctx context.Context, rec *model.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	if f.byHash[rec.Hash] {
		return repository.ErrDuplicateHash
	}
	f.byHash[rec.Hash] = true
	f.records = append(f.records, *rec)
	return nil
}

func (f *fakeRecordStore) ExistsByHash(ctx context.Context, hash string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.hideExistence {
		return false, nil
	}
	return f.byHash[hash], nil
}

func (f *fakeRecordStore) List(ctx context.Context, userID string, filter model.RecordFilter) ([]model.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	matching := f.filtered(userID, filter.Dataset, filter.Start, filter.End)
	sort.SliceStable(matching, func(i, j int) bool {
		return matching[i].RecordedAt.After(matching[j].RecordedAt)
	})

	start := 0
	if filter.Cursor != "" {
		found := false
		for i, rec := range matching {
			if rec.ID == filter.Cursor {
				start = i + 1
				found = true
				break
			}
		}
		if !found {
			return nil, repository.ErrRecordNotFound
		}
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	matching = matching[start:]
	if len(matching) > limit {
		matching = matching[:limit]
	}
	return matching, nil
}

func (f *fakeRecordStore) filtered(userID, dataset string, start, end *time.Time) []model.Record {
	var out []model.Record
	for _, rec := range f.records {
		if rec.UserID != userID {
			continue
		}
		if dataset != "" && rec.Dataset != dataset {
			continue
		}
		if start != nil && rec.RecordedAt.Before(*start) {
			continue
		}
		if end != nil && rec.RecordedAt.After(*end) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func (f *fakeRecordStore) ListAllByUser(ctx context.Context, userID string) ([]model.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.filtered(userID, "", nil, nil)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RecordedAt.After(out[j].RecordedAt)
	})
	return out, nil
}

func (f *fakeRecordStore) DeleteByUserProvider(ctx context.Context, userID, provider string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var kept []model.Record
	var deleted int64
	for _, rec := range f.records {
		if rec.UserID == userID && rec.Provider == provider {
			deleted++
			delete(f.byHash, rec.Hash)
			continue
		}
		kept = append(kept, rec)
	}
	f.records = kept
	return deleted, nil
}

func (f *fakeRecordStore) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var kept []model.Record
	var deleted int64
	for _, rec := range f.records {
		if rec.UserID == userID {
			deleted++
			delete(f.byHash, rec.Hash)
			continue
		}
		kept = append(kept, rec)
	}
	f.records = kept
	return deleted, nil
}

type fakeInsightStore struct {
	counts     map[string]int64
	topArtists []model.ArtistCount
	distanceKM float64
	durationS  float64
}

func (f *fakeInsightStore) CountSince(ctx context.Context, userID, dataset string, since time.Time) (int64, error) {
	return f.counts[dataset], nil
}

func (f *fakeInsightStore) TopArtists(ctx context.Context, userID string, since time.Time, limit int) ([]model.ArtistCount, error) {
	return f.topArtists, nil
}

func (f *fakeInsightStore) WorkoutTotals(ctx context.Context, userID string, since time.Time) (float64, float64, error) {
	return f.distanceKM, f.durationS, nil
}

type fakeAuditStore struct {
	mu      sync.Mutex
	entries []model.AuditLog
}

func (f *fakeAuditStore) Insert(ctx context.Context, entry *model.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeAuditStore) byAction(action string) []model.AuditLog {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.AuditLog
	for _, e := range f.entries {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

type fakeExportStore struct {
	mu      sync.Mutex
	exports []model.Export
}

func (f *fakeExportStore) Insert(ctx context.Context, exp *model.Export) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exports = append(f.exports, *exp)
	return nil
}

func (f *fakeExportStore) GetByToken(ctx context.Context, token string) (*model.Export, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, exp := range f.exports {
		if exp.DownloadToken == token {
			out := exp
			return &out, nil
		}
	}
	return nil, repository.ErrExportNotFound
}

func (f *fakeExportStore) ListByUser(ctx context.Context, userID string, limit int) ([]model.Export, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Export
	for _, exp := range f.exports {
		if exp.UserID == userID {
			out = append(out, exp)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeExportStore) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var kept []model.Export
	var deleted int64
	for _, exp := range f.exports {
		if exp.UserID == userID {
			deleted++
			continue
		}
		kept = append(kept, exp)
	}
	f.exports = kept
	return deleted, nil
}

type fakeBlobStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{blobs: make(map[string][]byte)}
}

func (f *fakeBlobStore) PutBlob(ctx context.Context, data []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uuid.NewString()
	f.blobs[id] = append([]byte(nil), data...)
	return id, nil
}

func (f *fakeBlobStore) GetBlob(ctx context.Context, id string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.blobs[id]
	if !ok {
		return nil, repository.ErrBlobNotFound
	}
	return data, nil
}

// stubAdapter serves a fixed page of items. Raw payloads carry the item
// index; Normalize resolves them back.
type stubAdapter struct {
	name     string
	items    []provider.Item
	fetchErr error
}

func (a *stubAdapter) Name() string { return a.name }

func (a *stubAdapter) Fetch(ctx context.Context, accessToken string) ([]provider.RawItem, error) {
	if a.fetchErr != nil {
		return nil, a.fetchErr
	}
	raws := make([]provider.RawItem, len(a.items))
	for i := range a.items {
		raws[i] = provider.RawItem(strconv.Itoa(i))
	}
	return raws, nil
}

func (a *stubAdapter) Normalize(raw provider.RawItem) (provider.Item, error) {
	var idx int
	if err := json.Unmarshal(raw, &idx); err != nil {
		return provider.Item{}, err
	}
	if idx < 0 || idx >= len(a.items) {
		return provider.Item{}, fmt.Errorf("unknown raw item %d", idx)
	}
	return a.items[idx], nil
}
