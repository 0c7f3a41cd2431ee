// Package provider contains the adapters that fetch activity from external
// services and normalize it into the unified record shape. Adapters never
// touch storage; they are one outbound call plus pure transformation.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"
)

// ErrUpstreamUnavailable is returned when a provider API responds with a
// non-success status or cannot be reached. An empty result set is not an
// error.
var ErrUpstreamUnavailable = errors.New("provider upstream unavailable")

// RawItem is one undecoded item from a provider response page.
type RawItem = json.RawMessage

// Item is the normalized form of a provider item, ready to become a Record.
// ProviderRecordID is deterministic across repeated fetches of the same
// logical event.
type Item struct {
	Dataset          string
	ProviderRecordID string
	RecordedAt       time.Time
	Fields           map[string]any
}

// Adapter is implemented once per provider.
type Adapter interface {
	// Name returns the provider tag ("spotify", "strava", ...).
	Name() string
	// Fetch retrieves the latest bounded page of raw activity using a
	// decrypted access token.
	Fetch(ctx context.Context, accessToken string) ([]RawItem, error)
	// Normalize maps one raw item into the unified record shape.
	Normalize(raw RawItem) (Item, error)
}

// Registry dispatches provider tags to adapters. Adding a provider means one
// new Adapter plus one Register call.
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry creates a registry holding the given adapters.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[string]Adapter, len(adapters))}
	for _, a := range adapters {
		r.Register(a)
	}
	return r
}

// Register adds or replaces an adapter under its name.
func (r *Registry) Register(a Adapter) {
	r.adapters[a.Name()] = a
}

// Get returns the adapter for a provider tag.
func (r *Registry) Get(name string) (Adapter, bool) {
	a, ok := r.adapters[name]
	return a, ok
}

// Names returns the registered provider tags, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
