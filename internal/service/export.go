package service

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/datavault/datavault-go/internal/crypto"
	"github.com/datavault/datavault-go/internal/model"
	"github.com/datavault/datavault-go/internal/repository"
)

var (
	ErrNoRecords      = errors.New("no records to export")
	ErrExportExpired  = errors.New("download link has expired")
	ErrExportNotFound = errors.New("export not found")
)

const downloadTokenTTL = 24 * time.Hour

// ExportService packages a user's records into a downloadable zip archive
// and manages the expiring download tokens that gate access to it.
type ExportService struct {
	records RecordStore
	exports ExportStore
	blobs   BlobStore
	audit   *AuditEmitter
	now     func() time.Time
}

// NewExportService creates a new ExportService.
func NewExportService(records RecordStore, exports ExportStore, blobs BlobStore, audit *AuditEmitter) *ExportService {
	return &ExportService{
		records: records,
		exports: exports,
		blobs:   blobs,
		audit:   audit,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Create builds the archive for everything the user has, stores it and
// returns metadata with a fresh single-use-style token valid for 24 hours.
func (s *ExportService) Create(ctx context.Context, userID string) (model.ExportResponse, error) {
	records, err := s.records.ListAllByUser(ctx, userID)
	if err != nil {
		return model.ExportResponse{}, err
	}
	if len(records) == 0 {
		return model.ExportResponse{}, ErrNoRecords
	}

	now := s.now()

	archive, err := buildArchive(userID, records, now)
	if err != nil {
		return model.ExportResponse{}, fmt.Errorf("building archive: %w", err)
	}

	token, err := crypto.NewDownloadToken()
	if err != nil {
		return model.ExportResponse{}, fmt.Errorf("generating download token: %w", err)
	}

	blobID, err := s.blobs.PutBlob(ctx, archive)
	if err != nil {
		return model.ExportResponse{}, err
	}

	exp := &model.Export{
		ID:            uuid.NewString(),
		UserID:        userID,
		FileName:      fmt.Sprintf("data_vault_export_%s_%s.zip", userID, now.Format("20060102_150405")),
		FileSize:      int64(len(archive)),
		DownloadToken: token,
		ExpiresAt:     now.Add(downloadTokenTTL),
		CreatedAt:     now,
		BlobID:        blobID,
	}
	if err := s.exports.Insert(ctx, exp); err != nil {
		return model.ExportResponse{}, err
	}

	s.audit.Record(ctx, userID, model.AuditActionExport, "", map[string]any{
		"file_size": exp.FileSize,
		"records":   len(records),
	})

	return exportToResponse(exp), nil
}

// ResolveDownload exchanges a token for the archive bytes. Expired tokens
// fail with ErrExportExpired; the row is kept so the condition is stable.
func (s *ExportService) ResolveDownload(ctx context.Context, token string) (fileName string, data []byte, err error) {
	exp, err := s.exports.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrExportNotFound) {
			return "", nil, ErrExportNotFound
		}
		return "", nil, err
	}

	if s.now().After(exp.ExpiresAt) {
		return "", nil, ErrExportExpired
	}

	data, err = s.blobs.GetBlob(ctx, exp.BlobID)
	if err != nil {
		return "", nil, err
	}
	return exp.FileName, data, nil
}

// List returns the user's most recent exports.
func (s *ExportService) List(ctx context.Context, userID string) ([]model.ExportResponse, error) {
	exports, err := s.exports.ListByUser(ctx, userID, 20)
	if err != nil {
		return nil, err
	}

	result := make([]model.ExportResponse, len(exports))
	for i := range exports {
		result[i] = exportToResponse(&exports[i])
	}
	return result, nil
}

func exportToResponse(exp *model.Export) model.ExportResponse {
	return model.ExportResponse{
		ID:            exp.ID,
		FileName:      exp.FileName,
		FileSize:      exp.FileSize,
		DownloadToken: exp.DownloadToken,
		ExpiresAt:     exp.ExpiresAt,
		CreatedAt:     exp.CreatedAt,
	}
}

// buildArchive renders records into a zip with one .json and one .csv per
// dataset plus a schema.json manifest. Datasets appear in first-seen order.
func buildArchive(userID string, records []model.Record, now time.Time) ([]byte, error) {
	var datasets []string
	grouped := make(map[string][]map[string]any)
	for _, rec := range records {
		if _, seen := grouped[rec.Dataset]; !seen {
			datasets = append(datasets, rec.Dataset)
		}
		grouped[rec.Dataset] = append(grouped[rec.Dataset], flattenRecord(rec))
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for _, dataset := range datasets {
		items := grouped[dataset]

		jsonFile, err := zw.Create(dataset + ".json")
		if err != nil {
			return nil, err
		}
		encoded, err := json.MarshalIndent(items, "", "  ")
		if err != nil {
			return nil, err
		}
		if _, err := jsonFile.Write(encoded); err != nil {
			return nil, err
		}

		csvFile, err := zw.Create(dataset + ".csv")
		if err != nil {
			return nil, err
		}
		if err := writeCSV(csvFile, items); err != nil {
			return nil, err
		}
	}

	manifest, err := zw.Create("schema.json")
	if err != nil {
		return nil, err
	}
	summary := map[string]any{
		"export_date":   now.Format(time.RFC3339),
		"user_id":       userID,
		"total_records": len(records),
		"datasets":      datasets,
	}
	encoded, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return nil, err
	}
	if _, err := manifest.Write(encoded); err != nil {
		return nil, err
	}

	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func flattenRecord(rec model.Record) map[string]any {
	flat := map[string]any{
		"id":          rec.ID,
		"recorded_at": rec.RecordedAt.Format(time.RFC3339),
		"provider":    rec.Provider,
	}
	for k, v := range rec.Body {
		flat[k] = v
	}
	return flat
}

// writeCSV emits the fixed columns first, then the first item's remaining
// keys sorted alphabetically. Items missing a column get an empty cell.
func writeCSV(w io.Writer, items []map[string]any) error {
	header := []string{"id", "recorded_at", "provider"}
	fixed := map[string]bool{"id": true, "recorded_at": true, "provider": true}

	var extra []string
	for k := range items[0] {
		if !fixed[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	header = append(header, extra...)

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, item := range items {
		row := make([]string, len(header))
		for i, col := range header {
			row[i] = formatCell(item[col])
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatCell(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		// Keep large IDs and durations out of scientific notation.
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}
