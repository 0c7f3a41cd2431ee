package model

import "time"

// Record is one normalized unit of ingested provider activity. Records are
// immutable once written; repeated syncs of the same logical event collapse
// onto one row via the dedup hash.
type Record struct {
	ID               string
	UserID           string
	Dataset          string
	Provider         string
	ProviderRecordID string
	RecordedAt       time.Time
	Body             map[string]any
	Hash             string
	CreatedAt        time.Time
}

// RecordFilter narrows a record listing. Cursor is the ID of the last record
// from the previous page; ordering is by event time descending.
type RecordFilter struct {
	Dataset string
	Start   *time.Time
	End     *time.Time
	Cursor  string
	Limit   int
}

// RecordResponse represents a record in API responses.
type RecordResponse struct {
	ID               string         `json:"id"`
	Dataset          string         `json:"dataset"`
	Provider         string         `json:"provider"`
	ProviderRecordID string         `json:"provider_record_id"`
	RecordedAt       time.Time      `json:"recorded_at"`
	Body             map[string]any `json:"body"`
	CreatedAt        time.Time      `json:"created_at"`
}

// RecordPage is one page of records plus the cursor for the next page.
type RecordPage struct {
	Records    []RecordResponse `json:"records"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

// ArtistCount is one entry of the top-artists insight grouping.
type ArtistCount struct {
	Artist string `json:"artist"`
	Count  int64  `json:"count"`
}

// InsightSummary aggregates a user's records over a trailing window.
type InsightSummary struct {
	RangeDays              int           `json:"range_days"`
	TracksCount            int64         `json:"tracks_count"`
	WorkoutsCount          int64         `json:"workouts_count"`
	EventsCount            int64         `json:"events_count"`
	TopArtists             []ArtistCount `json:"top_artists"`
	TotalWorkoutDistanceKM float64       `json:"total_workout_distance_km"`
	TotalWorkoutHours      float64       `json:"total_workout_hours"`
}
