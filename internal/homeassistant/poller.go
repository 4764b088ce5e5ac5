package homeassistant

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/reevehome/reeve/internal/events"
)

// PollerConfig configures the automation state poller.
type PollerConfig struct {
	// Client fetches states on every tick.
	Client *Client

	// Mirror receives the filtered snapshot after a successful pass.
	Mirror *Mirror

	// Filter selects which entities to mirror. Nil mirrors everything.
	Filter *EntityFilter

	// Interval is the poll cadence. Zero or negative selects one minute.
	Interval time.Duration

	// Bus receives poll_ok/poll_failed events. Optional.
	Bus *events.Bus

	// Logger for structured logging.
	Logger *slog.Logger
}

// Poller refreshes the automation state mirror on a fixed interval with
// the same swallow-and-continue policy as the device poller: failures
// are logged and counted, never fatal, and the cadence never changes.
type Poller struct {
	cfg PollerConfig

	mu       sync.Mutex
	failures uint64 // consecutive failed passes
}

// NewPoller creates an automation state poller.
func NewPoller(cfg PollerConfig) *Poller {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.Filter == nil {
		cfg.Filter = NewEntityFilter(nil, cfg.Logger)
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

	states, err := p.cfg.Client.GetStates(ctx)
	if err != nil {
		p.mu.Lock()
		p.failures++
		n := p.failures
		p.mu.Unlock()

		p.cfg.Logger.Warn("automation state poll failed",
			"error", err,
			"consecutive_failures", n,
		)
		p.cfg.Bus.Publish(events.Event{
			Timestamp: time.Now(),
			Source:    events.SourceAutomation,
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

	kept := make([]State, 0, len(states))
	for _, s := range states {
		if p.cfg.Filter.Match(s.EntityID) {
			kept = append(kept, s)
		}
	}
	p.cfg.Mirror.Replace(kept)

	p.cfg.Bus.Publish(events.Event{
		Timestamp: time.Now(),
		Source:    events.SourceAutomation,
		Kind:      events.KindPollOK,
		Data: map[string]any{
			"entities":   len(kept),
			"elapsed_ms": time.Since(start).Milliseconds(),
		},
	})
}
