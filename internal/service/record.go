package service

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/datavault/datavault-go/internal/model"
	"github.com/datavault/datavault-go/internal/repository"
)

var ErrInvalidCursor = errors.New("invalid cursor")

const defaultInsightRangeDays = 30

// RecordService serves the read side of the vault: filtered record pages
// and aggregate insights.
type RecordService struct {
	records  RecordStore
	insights InsightStore
	now      func() time.Time
}

// NewRecordService creates a new RecordService.
func NewRecordService(records RecordStore, insights InsightStore) *RecordService {
	return &RecordService{
		records:  records,
		insights: insights,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// List returns one page of a user's records, newest first. The returned
// cursor is the last record's ID; passing it back resumes after that row.
func (s *RecordService) List(ctx context.Context, userID string, filter model.RecordFilter) (model.RecordPage, error) {
	records, err := s.records.List(ctx, userID, filter)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return model.RecordPage{}, ErrInvalidCursor
		}
		return model.RecordPage{}, err
	}

	page := model.RecordPage{Records: make([]model.RecordResponse, len(records))}
	for i, rec := range records {
		page.Records[i] = model.RecordResponse{
			ID:               rec.ID,
			Dataset:          rec.Dataset,
			Provider:         rec.Provider,
			ProviderRecordID: rec.ProviderRecordID,
			RecordedAt:       rec.RecordedAt,
			Body:             rec.Body,
			CreatedAt:        rec.CreatedAt,
		}
	}
	if len(records) > 0 {
		page.NextCursor = records[len(records)-1].ID
	}
	return page, nil
}

// Insights aggregates the user's records over the trailing rangeDays window.
func (s *RecordService) Insights(ctx context.Context, userID string, rangeDays int) (model.InsightSummary, error) {
	if rangeDays <= 0 {
		rangeDays = defaultInsightRangeDays
	}
	since := s.now().AddDate(0, 0, -rangeDays)

	summary := model.InsightSummary{RangeDays: rangeDays, TopArtists: []model.ArtistCount{}}

	var err error
	if summary.TracksCount, err = s.insights.CountSince(ctx, userID, "tracks", since); err != nil {
		return model.InsightSummary{}, err
	}
	if summary.WorkoutsCount, err = s.insights.CountSince(ctx, userID, "workouts", since); err != nil {
		return model.InsightSummary{}, err
	}
	if summary.EventsCount, err = s.insights.CountSince(ctx, userID, "events", since); err != nil {
		return model.InsightSummary{}, err
	}

	artists, err := s.insights.TopArtists(ctx, userID, since, 5)
	if err != nil {
		return model.InsightSummary{}, err
	}
	if artists != nil {
		summary.TopArtists = artists
	}

	distanceKM, durationS, err := s.insights.WorkoutTotals(ctx, userID, since)
	if err != nil {
		return model.InsightSummary{}, err
	}
	summary.TotalWorkoutDistanceKM = round2(distanceKM)
	summary.TotalWorkoutHours = round2(durationS / 3600)

	return summary, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
