package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const (
	calendarMaxResults = 100
	calendarLookback   = 30 * 24 * time.Hour
)

// GoogleCalendar ingests primary-calendar events into the "events" dataset.
type GoogleCalendar struct {
	client  *http.Client
	baseURL string
	now     func() time.Time
}

// NewGoogleCalendar creates the Google Calendar adapter. baseURL overrides
// the production API host; pass "" for the default.
func NewGoogleCalendar(client *http.Client, baseURL string) *GoogleCalendar {
	if baseURL == "" {
		baseURL = "https://www.googleapis.com"
	}
	return &GoogleCalendar{
		client:  client,
		baseURL: baseURL,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (g *GoogleCalendar) Name() string { return "google_calendar" }

func (g *GoogleCalendar) Fetch(ctx context.Context, accessToken string) ([]RawItem, error) {
	query := url.Values{
		"timeMin":      {g.now().Add(-calendarLookback).Format(time.RFC3339)},
		"maxResults":   {fmt.Sprint(calendarMaxResults)},
		"singleEvents": {"true"},
		"orderBy":      {"startTime"},
	}
	endpoint := g.baseURL + "/calendar/v3/calendars/primary/events?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: google calendar responded %d", ErrUpstreamUnavailable, resp.StatusCode)
	}

	var page struct {
		Items []RawItem `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("%w: decoding google calendar response: %v", ErrUpstreamUnavailable, err)
	}

	return page.Items, nil
}

type calendarEventTime struct {
	DateTime string `json:"dateTime"`
	Date     string `json:"date"`
}

func (t calendarEventTime) value() string {
	if t.DateTime != "" {
		return t.DateTime
	}
	return t.Date
}

func (g *GoogleCalendar) Normalize(raw RawItem) (Item, error) {
	var event struct {
		ID          string            `json:"id"`
		Summary     string            `json:"summary"`
		Description string            `json:"description"`
		Location    string            `json:"location"`
		Start       calendarEventTime `json:"start"`
		End         calendarEventTime `json:"end"`
		Attendees   []struct {
			Email string `json:"email"`
		} `json:"attendees"`
	}
	if err := json.Unmarshal(raw, &event); err != nil {
		return Item{}, fmt.Errorf("decoding calendar event: %w", err)
	}

	recordedAt := g.parseEventTime(event.Start)

	return Item{
		Dataset:          "events",
		ProviderRecordID: event.ID,
		RecordedAt:       recordedAt,
		Fields: map[string]any{
			"summary":     event.Summary,
			"description": event.Description,
			"location":    event.Location,
			"start_time":  event.Start.value(),
			"end_time":    event.End.value(),
			"attendees":   len(event.Attendees),
			"source":      "google_calendar",
		},
	}, nil
}

// parseEventTime handles both timed events (RFC 3339 dateTime) and all-day
// events (plain date). Events with no usable start fall back to now, so one
// malformed event does not abort a whole sync run.
func (g *GoogleCalendar) parseEventTime(t calendarEventTime) time.Time {
	if t.DateTime != "" {
		if parsed, err := time.Parse(time.RFC3339, t.DateTime); err == nil {
			return parsed.UTC()
		}
	}
	if t.Date != "" {
		if parsed, err := time.Parse("2006-01-02", t.Date); err == nil {
			return parsed.UTC()
		}
	}
	return g.now()
}
