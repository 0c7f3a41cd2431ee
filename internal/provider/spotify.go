package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const spotifyPageSize = 50

// Spotify ingests recently played tracks into the "tracks" dataset.
type Spotify struct {
	client  *http.Client
	baseURL string
}

// NewSpotify creates the Spotify adapter. baseURL overrides the production
// API host; pass "" for the default.
func NewSpotify(client *http.Client, baseURL string) *Spotify {
	if baseURL == "" {
		baseURL = "https://api.spotify.com"
	}
	return &Spotify{client: client, baseURL: baseURL}
}

func (s *Spotify) Name() string { return "spotify" }

func (s *Spotify) Fetch(ctx context.Context, accessToken string) ([]RawItem, error) {
	url := fmt.Sprintf("%s/v1/me/player/recently-played?limit=%d", s.baseURL, spotifyPageSize)
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
		return nil, fmt.Errorf("%w: spotify responded %d", ErrUpstreamUnavailable, resp.StatusCode)
	}

	var page struct {
		Items []RawItem `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("%w: decoding spotify response: %v", ErrUpstreamUnavailable, err)
	}

	return page.Items, nil
}

func (s *Spotify) Normalize(raw RawItem) (Item, error) {
	var play struct {
		PlayedAt string `json:"played_at"`
		Track    struct {
			ID         string `json:"id"`
			Name       string `json:"name"`
			DurationMS int    `json:"duration_ms"`
			Album      struct {
				Name string `json:"name"`
			} `json:"album"`
			Artists []struct {
				Name string `json:"name"`
			} `json:"artists"`
		} `json:"track"`
	}
	if err := json.Unmarshal(raw, &play); err != nil {
		return Item{}, fmt.Errorf("decoding spotify play item: %w", err)
	}

	playedAt, err := time.Parse(time.RFC3339, play.PlayedAt)
	if err != nil {
		return Item{}, fmt.Errorf("parsing spotify played_at %q: %w", play.PlayedAt, err)
	}

	artists := make([]string, 0, len(play.Track.Artists))
	for _, a := range play.Track.Artists {
		artists = append(artists, a.Name)
	}

	return Item{
		Dataset: "tracks",
		// The track ID alone repeats across plays; combining it with the
		// play timestamp identifies the logical event.
		ProviderRecordID: play.Track.ID + ":" + play.PlayedAt,
		RecordedAt:       playedAt.UTC(),
		Fields: map[string]any{
			"title":       play.Track.Name,
			"artist":      strings.Join(artists, ", "),
			"album":       play.Track.Album.Name,
			"duration_ms": play.Track.DurationMS,
			"played_at":   play.PlayedAt,
			"source":      "spotify",
		},
	}, nil
}
