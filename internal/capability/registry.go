// Package capability holds the static catalog of control-surface
// interfaces the integration understands. Descriptors are declared at
// startup and never mutated afterwards; the registry exists so other
// components and the ops API can enumerate what the adapter can do.
package capability

import "sync"

// Type tags a descriptor with the interface family it belongs to.
type Type string

const (
	// TypeAlexaInterface marks Alexa-model capability interfaces.
	TypeAlexaInterface Type = "AlexaInterface"
)

// Descriptor declares a single control-surface interface.
// Immutable after registration; keyed by Interface name.
type Descriptor struct {
	Interface           string   `json:"interface"`
	Version             string   `json:"version"`
	Type                Type     `json:"type"`
	Properties          []string `json:"properties,omitempty"`
	ProactivelyReported bool     `json:"proactivelyReported"`
	Retrievable         bool     `json:"retrievable"`
}

// Registry is an in-memory descriptor catalog. Safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	byKey map[string]Descriptor
	order []string // first-registration order
}

// NewRegistry creates a registry pre-populated with the built-in
// power and brightness descriptors.
func NewRegistry() *Registry {
	r := &Registry{byKey: make(map[string]Descriptor)}
	for _, d := range Builtins() {
		r.Register(d)
	}
	return r
}

// Register adds a descriptor, overwriting any existing descriptor with
// the same interface name. An overwritten descriptor keeps its original
// position in List.
func (r *Registry) Register(d Descriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byKey[d.Interface]; !exists {
		r.order = append(r.order, d.Interface)
	}
	r.byKey[d.Interface] = d
}

// Get returns the descriptor for an interface name.
func (r *Registry) Get(name string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byKey[name]
	return d, ok
}

// List returns all descriptors in first-registration order.
func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Descriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byKey[name])
	}
	return out
}

// Count returns the number of registered descriptors.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byKey)
}

// Builtins returns the descriptors every deployment starts with.
func Builtins() []Descriptor {
	return []Descriptor{
		{
			Interface:           "Alexa.PowerController",
			Version:             "3",
			Type:                TypeAlexaInterface,
			Properties:          []string{"powerState"},
			ProactivelyReported: true,
			Retrievable:         true,
		},
		{
			Interface:           "Alexa.BrightnessController",
			Version:             "3",
			Type:                TypeAlexaInterface,
			Properties:          []string{"brightness"},
			ProactivelyReported: true,
			Retrievable:         true,
		},
	}
}
