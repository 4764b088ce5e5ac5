package entity

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/reevehome/reeve/internal/events"
	"github.com/reevehome/reeve/internal/smartthings"
)

type sinkUpdate struct {
	id    string
	name  string
	state map[string]any
}

type mockSink struct {
	mu      sync.Mutex
	updates []sinkUpdate
}

func (m *mockSink) Update(id, name string, state map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates = append(m.updates, sinkUpdate{id: id, name: name, state: state})
}

func (m *mockSink) getUpdates() []sinkUpdate {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]sinkUpdate, len(m.updates))
	copy(cp, m.updates)
	return cp
}

func TestPoller_PollPushesStateToSink(t *testing.T) {
	gw := &fakeGateway{
		devices: []smartthings.Device{
			deviceWithCaps("dev-1", "Desk Lamp", "switch", "switchLevel", "colorControl", "colorTemperature"),
			deviceWithCaps("dev-2", "Front Door", "lock"),
		},
		statuses: map[string]*smartthings.DeviceStatus{
			"dev-1": statusWith(map[string]any{"switch": "on", "level": 80}),
		},
	}
	registry := NewRegistry(gw, nil, nil)
	sink := &mockSink{}

	p := NewPoller(PollerConfig{
		Registry: registry,
		Sink:     sink,
		Interval: time.Hour, // won't tick in test
	})

	p.poll(context.Background())

	updates := sink.getUpdates()
	if len(updates) != 2 {
		t.Fatalf("expected 2 sink updates, got %d", len(updates))
	}

	var lamp *sinkUpdate
	for i := range updates {
		if updates[i].id == "dev-1" {
			lamp = &updates[i]
		}
	}
	if lamp == nil {
		t.Fatal("no update for dev-1")
	}
	if lamp.name != "Desk Lamp" {
		t.Errorf("update name = %q, want Desk Lamp", lamp.name)
	}
	if lamp.state["switch"] != "on" {
		t.Errorf("update state switch = %v, want on", lamp.state["switch"])
	}
}

func TestPoller_FailureCountsAndPreservesRegistry(t *testing.T) {
	gw := &fakeGateway{
		devices: []smartthings.Device{deviceWithCaps("dev-1", "Desk Lamp", "switch")},
	}
	registry := NewRegistry(gw, nil, nil)
	sink := &mockSink{}

	p := NewPoller(PollerConfig{
		Registry: registry,
		Sink:     sink,
		Interval: time.Hour,
	})

	p.poll(context.Background())
	if n := p.ConsecutiveFailures(); n != 0 {
		t.Fatalf("failures after success = %d, want 0", n)
	}
	baseline := len(sink.getUpdates())

	gw.setListErr(fmt.Errorf("gateway unreachable"))

	p.poll(context.Background())
	if n := p.ConsecutiveFailures(); n != 1 {
		t.Errorf("failures = %d, want 1", n)
	}
	p.poll(context.Background())
	if n := p.ConsecutiveFailures(); n != 2 {
		t.Errorf("failures = %d, want 2", n)
	}

	// A failed poll must not disturb the last good registry contents
	// and must not push stale updates.
	if registry.Count() != 1 {
		t.Errorf("registry count = %d, want 1", registry.Count())
	}
	if len(sink.getUpdates()) != baseline {
		t.Errorf("sink updated during failed poll")
	}
}

func TestPoller_RecoveryResetsFailureCount(t *testing.T) {
	gw := &fakeGateway{
		devices: []smartthings.Device{deviceWithCaps("dev-1", "Desk Lamp", "switch")},
		listErr: fmt.Errorf("gateway unreachable"),
	}
	registry := NewRegistry(gw, nil, nil)
	sink := &mockSink{}

	p := NewPoller(PollerConfig{
		Registry: registry,
		Sink:     sink,
		Interval: time.Hour,
	})

	p.poll(context.Background())
	if n := p.ConsecutiveFailures(); n != 1 {
		t.Fatalf("failures = %d, want 1", n)
	}

	gw.setListErr(nil)

	p.poll(context.Background())
	if n := p.ConsecutiveFailures(); n != 0 {
		t.Errorf("failures after recovery = %d, want 0", n)
	}
	if len(sink.getUpdates()) != 1 {
		t.Errorf("expected 1 sink update after recovery, got %d", len(sink.getUpdates()))
	}
}

func TestPoller_PublishesPollEvents(t *testing.T) {
	gw := &fakeGateway{
		devices: []smartthings.Device{deviceWithCaps("dev-1", "Desk Lamp", "switch")},
	}
	bus := events.New()
	registry := NewRegistry(gw, nil, nil)

	p := NewPoller(PollerConfig{
		Registry: registry,
		Sink:     &mockSink{},
		Interval: time.Hour,
		Bus:      bus,
	})

	ch := bus.Subscribe(16)
	defer bus.Unsubscribe(ch)

	p.poll(context.Background())
	waitForEvent(t, ch, events.KindPollOK)

	gw.setListErr(fmt.Errorf("gateway unreachable"))
	p.poll(context.Background())
	e := waitForEvent(t, ch, events.KindPollFailed)
	if e.Source != events.SourceRegistry {
		t.Errorf("event source = %q, want %q", e.Source, events.SourceRegistry)
	}
	if e.Data["consecutive_failures"] != uint64(1) {
		t.Errorf("consecutive_failures = %v, want 1", e.Data["consecutive_failures"])
	}
}

func waitForEvent(t *testing.T, ch <-chan events.Event, kind string) events.Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case e := <-ch:
			if e.Kind == kind {
				return e
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s event", kind)
		}
	}
}

// Start should exit promptly when the context is cancelled.
func TestPoller_StartStopsOnContextCancel(t *testing.T) {
	gw := &fakeGateway{
		devices: []smartthings.Device{deviceWithCaps("dev-1", "Desk Lamp", "switch")},
	}
	registry := NewRegistry(gw, nil, nil)

	p := NewPoller(PollerConfig{
		Registry: registry,
		Sink:     &mockSink{},
		Interval: time.Hour,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Start(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}
