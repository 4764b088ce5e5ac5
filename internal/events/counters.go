package events

import "sync"

// Counters accumulates per-source/kind event totals so operational
// tooling can read failure counts without replaying the event stream.
// Safe for concurrent use. Safe to call on a nil receiver (no-op).
type Counters struct {
	mu     sync.RWMutex
	counts map[string]uint64
}

// NewCounters creates an empty counter set.
func NewCounters() *Counters {
	return &Counters{counts: make(map[string]uint64)}
}

// Inc increments the counter for a source/kind pair.
func (c *Counters) Inc(source, kind string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.counts[source+"."+kind]++
	c.mu.Unlock()
}

// Get returns the current total for a source/kind pair.
func (c *Counters) Get(source, kind string) uint64 {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.counts[source+"."+kind]
}

// Snapshot returns a copy of all counters keyed as "source.kind".
func (c *Counters) Snapshot() map[string]uint64 {
	if c == nil {
		return map[string]uint64{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]uint64, len(c.counts))
	for k, v := range c.counts {
		out[k] = v
	}
	return out
}

// Tally subscribes to the bus and increments counters for every event
// until the bus unsubscribes the returned channel or the subscription
// channel is closed. It runs in its own goroutine; call it once at
// startup.
func (c *Counters) Tally(bus *Bus) <-chan Event {
	ch := bus.Subscribe(256)
	go func() {
		for e := range ch {
			c.Inc(e.Source, e.Kind)
		}
	}()
	return ch
}
