package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

const stravaPageSize = 50

// Strava ingests athlete activities into the "workouts" dataset.
type Strava struct {
	client  *http.Client
	baseURL string
}

// NewStrava creates the Strava adapter. baseURL overrides the production API
// host; pass "" for the default.
func NewStrava(client *http.Client, baseURL string) *Strava {
	if baseURL == "" {
		baseURL = "https://www.strava.com"
	}
	return &Strava{client: client, baseURL: baseURL}
}

func (s *Strava) Name() string { return "strava" }

func (s *Strava) Fetch(ctx context.Context, accessToken string) ([]RawItem, error) {
	url := fmt.Sprintf("%s/api/v3/athlete/activities?per_page=%d", s.baseURL, stravaPageSize)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: strava responded %d", ErrUpstreamUnavailable, resp.StatusCode)
	}

	var activities []RawItem
	if err := json.NewDecoder(resp.Body).Decode(&activities); err != nil {
		return nil, fmt.Errorf("%w: decoding strava response: %v", ErrUpstreamUnavailable, err)
	}

	return activities, nil
}

func (s *Strava) Normalize(raw RawItem) (Item, error) {
	var activity struct {
		ID                 int64   `json:"id"`
		Name               string  `json:"name"`
		Type               string  `json:"type"`
		Distance           float64 `json:"distance"`
		MovingTime         int     `json:"moving_time"`
		TotalElevationGain float64 `json:"total_elevation_gain"`
		StartDate          string  `json:"start_date"`
	}
	if err := json.Unmarshal(raw, &activity); err != nil {
		return Item{}, fmt.Errorf("decoding strava activity: %w", err)
	}

	startDate, err := time.Parse(time.RFC3339, activity.StartDate)
	if err != nil {
		return Item{}, fmt.Errorf("parsing strava start_date %q: %w", activity.StartDate, err)
	}

	return Item{
		Dataset:          "workouts",
		ProviderRecordID: strconv.FormatInt(activity.ID, 10),
		RecordedAt:       startDate.UTC(),
		Fields: map[string]any{
			"name":           activity.Name,
			"type":           activity.Type,
			"distance_km":    activity.Distance / 1000,
			"duration_s":     activity.MovingTime,
			"elevation_gain": activity.TotalElevationGain,
			"start_time":     activity.StartDate,
			"source":         "strava",
		},
	}, nil
}
