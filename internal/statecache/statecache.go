// Package statecache keeps the last-known state of every entity for
// prompt injection. It is deliberately a second store, separate from
// the entity registry: the two are refreshed by the same poll loop but
// read on different paths, so there is a window where they disagree.
// Readers get whichever store they asked for, never a merge.
package statecache

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// Entry is one device's last-known state.
type Entry struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	State map[string]any `json:"state,omitempty"`
}

// Store maps entity ids to their last-known state. Entries are written
// by the poll loop and by post-command refreshes and never expire
// unless WithStaleAfter is set; a stale line in the prompt beats no
// line at all.
type Store struct {
	cache      *ttlcache.Cache[string, Entry]
	staleAfter time.Duration

	mu    sync.Mutex
	order []string
	seen  map[string]bool
}

// Option configures a Store.
type Option func(*Store)

// WithStaleAfter drops entries that have not been refreshed within d.
// Zero or negative keeps entries forever, which is the default.
func WithStaleAfter(d time.Duration) Option {
	return func(s *Store) { s.staleAfter = d }
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{seen: make(map[string]bool)}
	for _, opt := range opts {
		opt(s)
	}
	s.cache = ttlcache.New(
		ttlcache.WithDisableTouchOnHit[string, Entry](),
	)
	// The reaper run must be unconditional: Stop blocks until a running
	// Start receives it.
	go s.cache.Start()
	return s
}

// Stop halts the expiry reaper. Call exactly once, when the store is
// retired.
func (s *Store) Stop() {
	s.cache.Stop()
}

// Update records the last-known state for an entity. The state map is
// copied, so the caller may keep mutating its own.
func (s *Store) Update(id, name string, state map[string]any) {
	if id == "" {
		return
	}
	s.mu.Lock()
	if !s.seen[id] {
		s.seen[id] = true
		s.order = append(s.order, id)
	}
	s.mu.Unlock()

	ttl := ttlcache.NoTTL
	if s.staleAfter > 0 {
		ttl = s.staleAfter
	}
	s.cache.Set(id, Entry{ID: id, Name: name, State: maps.Clone(state)}, ttl)
}

// Get returns the cached entry for an entity id.
func (s *Store) Get(id string) (Entry, bool) {
	item := s.cache.Get(id)
	if item == nil {
		return Entry{}, false
	}
	e := item.Value()
	e.State = maps.Clone(e.State)
	return e, true
}

// Entries returns all live entries in first-update order. Expired ids
// are pruned from the ordering as a side effect.
func (s *Store) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]Entry, 0, len(s.order))
	kept := s.order[:0]
	for _, id := range s.order {
		item := s.cache.Get(id)
		if item == nil {
			delete(s.seen, id)
			continue
		}
		kept = append(kept, id)
		e := item.Value()
		e.State = maps.Clone(e.State)
		entries = append(entries, e)
	}
	s.order = kept
	return entries
}

// Len reports how many live entries the store holds.
func (s *Store) Len() int {
	return len(s.Entries())
}

// Snapshot renders every cached entity as a "name: state" line,
// newline-joined in first-update order. Empty store renders empty.
func (s *Store) Snapshot() string {
	entries := s.Entries()
	if len(entries) == 0 {
		return ""
	}
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, fmt.Sprintf("%s: %s", e.Name, renderState(e.State)))
	}
	return strings.Join(lines, "\n")
}

func renderState(state map[string]any) string {
	if len(state) == 0 {
		return "unknown"
	}
	b, err := json.Marshal(state)
	if err != nil {
		return "unknown"
	}
	return string(b)
}

// Provider injects the cached device states into the model's context.
// Implements the runtime's context provider contract.
type Provider struct {
	store *Store
}

// NewProvider creates a provider reading from store.
func NewProvider(store *Store) *Provider {
	return &Provider{store: store}
}

// GetContext returns the cached device states formatted for the system
// prompt. Returns an empty string when nothing has been cached yet.
func (p *Provider) GetContext(_ context.Context, _ string) (string, error) {
	snap := p.store.Snapshot()
	if snap == "" {
		return "", nil
	}
	return "### Device States\n\n" + snap + "\n", nil
}
