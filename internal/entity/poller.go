package entity

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/reevehome/reeve/internal/events"
)

// StateSink receives refreshed entity state after each successful poll.
// The state cache satisfies it; keeping an interface here means the
// poller does not care where snapshots live.
type StateSink interface {
	Update(id, name string, state map[string]any)
}

// PollerConfig configures the device directory poller.
type PollerConfig struct {
	// Registry is re-discovered on every tick.
	Registry *Registry

	// Sink, when non-nil, receives every entity's state after a
	// successful pass.
	Sink StateSink

	// Interval is the poll cadence. Zero or negative selects one minute.
	Interval time.Duration

	// Bus receives poll_ok/poll_failed events. Optional.
	Bus *events.Bus

	// Logger for structured logging.
	Logger *slog.Logger
}

// Poller re-runs full device discovery on a fixed interval. Failures are
// logged, counted, and swallowed: the loop never backs off and never
// stops, because the next pass may succeed on its own.
type Poller struct {
	cfg PollerConfig

	mu       sync.Mutex
	failures uint64 // consecutive failed passes
}

// NewPoller creates a device directory poller.
func NewPoller(cfg PollerConfig) *Poller {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	return &Poller{cfg: cfg}
}

// Start runs the polling loop until ctx is cancelled. It blocks.
func (p *Poller) Start(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	// Poll immediately on start.
	p.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

// ConsecutiveFailures returns how many passes in a row have failed.
// Resets to zero on the first success.
func (p *Poller) ConsecutiveFailures() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failures
}

func (p *Poller) poll(ctx context.Context) {
	start := time.Now()

	if err := p.cfg.Registry.Discover(ctx); err != nil {
		p.mu.Lock()
		p.failures++
		n := p.failures
		p.mu.Unlock()

		p.cfg.Logger.Warn("device poll failed",
			"error", err,
			"consecutive_failures", n,
		)
		p.cfg.Bus.Publish(events.Event{
			Timestamp: time.Now(),
			Source:    events.SourceRegistry,
			Kind:      events.KindPollFailed,
			Data: map[string]any{
				"error":                err.Error(),
				"consecutive_failures": n,
			},
		})
		return
	}

	p.mu.Lock()
	p.failures = 0
	p.mu.Unlock()

	entities := p.cfg.Registry.List()
	if p.cfg.Sink != nil {
		for _, e := range entities {
			p.cfg.Sink.Update(e.ID, e.Name, e.State)
		}
	}

	p.cfg.Bus.Publish(events.Event{
		Timestamp: time.Now(),
		Source:    events.SourceRegistry,
		Kind:      events.KindPollOK,
		Data: map[string]any{
			"entities":   len(entities),
			"elapsed_ms": time.Since(start).Milliseconds(),
		},
	})
}
