package entity

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/reevehome/reeve/internal/events"
	"github.com/reevehome/reeve/internal/smartthings"
)

// Gateway is the device cloud surface the registry needs for discovery.
// *smartthings.Client satisfies it; tests provide fakes.
type Gateway interface {
	ListDevices(ctx context.Context) ([]smartthings.Device, error)
	GetDeviceStatus(ctx context.Context, deviceID string) (*smartthings.DeviceStatus, error)
}

// DiscoveryError wraps a failed discovery pass. The registry keeps its
// previous contents whenever one of these is returned.
type DiscoveryError struct {
	Cause error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("discovery failed: %v", e.Cause)
}

func (e *DiscoveryError) Unwrap() error {
	return e.Cause
}

// Registry is the in-memory device directory. Discovery replaces the
// whole directory under a single writer lock; readers get copies, so a
// half-finished replacement is never observable.
type Registry struct {
	gateway Gateway
	logger  *slog.Logger
	bus     *events.Bus

	mu       sync.RWMutex
	entities map[string]Entity
	order    []string // discovery order
}

// NewRegistry creates a registry backed by the given gateway. The bus is
// optional; pass nil to skip discovery events.
func NewRegistry(gateway Gateway, bus *events.Bus, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		gateway:  gateway,
		logger:   logger,
		bus:      bus,
		entities: make(map[string]Entity),
	}
}

// Discover fetches the full device list, classifies every device, and
// replaces the registry contents wholesale. The replace is all-or-nothing:
// any listing failure returns a DiscoveryError and leaves the previous
// contents untouched. Per-device status fetches are best-effort; a device
// whose status cannot be read joins the registry with empty state.
func (r *Registry) Discover(ctx context.Context) error {
	devices, err := r.gateway.ListDevices(ctx)
	if err != nil {
		return &DiscoveryError{Cause: err}
	}

	fresh := make(map[string]Entity, len(devices))
	order := make([]string, 0, len(devices))

	for _, d := range devices {
		caps := d.CapabilityIDs()
		e := Entity{
			ID:           d.DeviceID,
			Name:         d.DisplayName(),
			Type:         Classify(caps),
			Capabilities: caps,
		}

		status, err := r.gateway.GetDeviceStatus(ctx, d.DeviceID)
		if err != nil {
			r.logger.Warn("device status fetch failed",
				"device_id", d.DeviceID,
				"name", e.Name,
				"error", err,
			)
		} else {
			e.State = status.Flatten()
		}

		if _, dup := fresh[e.ID]; !dup {
			order = append(order, e.ID)
		}
		fresh[e.ID] = e
	}

	r.mu.Lock()
	r.entities = fresh
	r.order = order
	r.mu.Unlock()

	r.logger.Info("device discovery complete", "entities", len(fresh))
	r.bus.Publish(events.Event{
		Timestamp: time.Now(),
		Source:    events.SourceRegistry,
		Kind:      events.KindDiscovery,
		Data:      map[string]any{"entities": len(fresh)},
	})

	return nil
}

// Get returns a copy of the entity with the given id.
func (r *Registry) Get(id string) (Entity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entities[id]
	if !ok {
		return Entity{}, false
	}
	return e.clone(), true
}

// List returns a snapshot of all entities in discovery order.
func (r *Registry) List() []Entity {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Entity, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.entities[id].clone())
	}
	return out
}

// Count returns the number of entities currently in the registry.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entities)
}

// UpdateState overwrites the embedded state of a known entity.
// Unknown ids are a silent no-op.
func (r *Registry) UpdateState(id string, state map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entities[id]
	if !ok {
		return
	}
	e.State = state
	r.entities[id] = e
}

// Summary renders a human-readable inventory, one line per entity in
// discovery order. Used by the discovery action's confirmation text.
func (r *Registry) Summary() string {
	entities := r.List()
	if len(entities) == 0 {
		return "No devices discovered yet."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d devices:\n", len(entities))
	for _, e := range entities {
		fmt.Fprintf(&sb, "- %s (type: %s, state: %s)\n", e.Name, e.Type, e.StateString())
	}
	return sb.String()
}
