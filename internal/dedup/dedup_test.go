package dedup

import (
	"context"
	"testing"
)

func TestHashIsDeterministic(t *testing.T) {
	h1 := Hash("spotify", "track-1:2024-05-01T10:00:00Z")
	h2 := Hash("spotify", "track-1:2024-05-01T10:00:00Z")

	if h1 != h2 {
		t.Errorf("Hash() not deterministic: %q != %q", h1, h2)
	}
	if len(h1) != 64 {
		t.Errorf("Hash() length = %d, want 64 hex chars", len(h1))
	}
}

func TestHashDistinguishesInputs(t *testing.T) {
	seen := make(map[string]string)

	inputs := []struct{ provider, id string }{
		{"spotify", "track-1"},
		{"spotify", "track-2"},
		{"strava", "track-1"},
		{"strava", "12345"},
		{"google_calendar", "evt-1"},
		// The separator prevents ambiguous concatenations from colliding.
		{"spotify", "a:b"},
		{"spotify:a", "b"},
	}

	for _, in := range inputs {
		h := Hash(in.provider, in.id)
		if prev, ok := seen[h]; ok {
			t.Errorf("Hash(%q, %q) collides with %s", in.provider, in.id, prev)
		}
		seen[h] = in.provider + "/" + in.id
	}
}

func TestHashKnownValue(t *testing.T) {
	// Pins the digest scheme so hashes already stored stay valid across
	// releases. SHA-256("spotify:abc").
	want := "1951ee47d35ae860b8e4a4adb4d25cb862caca2e31622188134f7dde3b4af79d"

	if got := Hash("spotify", "abc"); got != want {
		t.Errorf("Hash() = %q, want %q", got, want)
	}
}

type staticChecker struct{ existing map[string]bool }

func (s staticChecker) ExistsByHash(_ context.Context, hash string) (bool, error) {
	return s.existing[hash], nil
}

func TestIndexExists(t *testing.T) {
	known := Hash("strava", "42")
	idx := NewIndex(staticChecker{existing: map[string]bool{known: true}})

	exists, err := idx.Exists(context.Background(), known)
	if err != nil {
		t.Fatalf("Exists() unexpected error: %v", err)
	}
	if !exists {
		t.Error("Exists() = false for stored hash")
	}

	exists, err = idx.Exists(context.Background(), Hash("strava", "43"))
	if err != nil {
		t.Fatalf("Exists() unexpected error: %v", err)
	}
	if exists {
		t.Error("Exists() = true for unknown hash")
	}
}
