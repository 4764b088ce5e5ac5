package homeassistant

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Mirror holds the most recent automation state snapshot. The poller
// replaces the snapshot wholesale on each successful pass; readers get
// copies.
type Mirror struct {
	mu        sync.RWMutex
	states    []State
	updatedAt time.Time
}

// NewMirror creates an empty automation state mirror.
func NewMirror() *Mirror {
	return &Mirror{}
}

// Replace swaps in a new snapshot wholesale.
func (m *Mirror) Replace(states []State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states = states
	m.updatedAt = time.Now()
}

// States returns a copy of the current snapshot.
func (m *Mirror) States() []State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]State, len(m.states))
	copy(out, m.states)
	return out
}

// Len returns the number of mirrored entities.
func (m *Mirror) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.states)
}

// UpdatedAt returns when the snapshot was last replaced. Zero means no
// successful pass yet.
func (m *Mirror) UpdatedAt() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.updatedAt
}

// Snapshot renders the mirror as "entity_id: state" lines, one per
// entity, in snapshot order.
func (m *Mirror) Snapshot() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	lines := make([]string, 0, len(m.states))
	for _, s := range m.states {
		lines = append(lines, s.EntityID+": "+s.State)
	}
	return strings.Join(lines, "\n")
}

// Provider renders the automation snapshot as a context block.
type Provider struct {
	mirror *Mirror
}

// NewProvider creates a context provider over the mirror.
func NewProvider(mirror *Mirror) *Provider {
	return &Provider{mirror: mirror}
}

// GetContext returns the mirrored automation states as a text block.
// An empty mirror contributes nothing.
func (p *Provider) GetContext(_ context.Context, _ string) (string, error) {
	snap := p.mirror.Snapshot()
	if snap == "" {
		return "", nil
	}
	return "### Automation States\n\n" + snap + "\n", nil
}
