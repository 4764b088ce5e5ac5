package entity

import (
	"context"
	"fmt"
)

// DiscoveryProvider re-runs device discovery and returns the fresh
// device summary. Unlike the cached state provider it pays a full
// gateway round-trip per call, so it is wired for on-demand use only.
type DiscoveryProvider struct {
	registry *Registry
}

// NewDiscoveryProvider creates a provider backed by registry.
func NewDiscoveryProvider(r *Registry) *DiscoveryProvider {
	return &DiscoveryProvider{registry: r}
}

// GetContext refreshes the registry and returns its summary.
// Implements the runtime's context provider contract.
func (p *DiscoveryProvider) GetContext(ctx context.Context, _ string) (string, error) {
	if err := p.registry.Discover(ctx); err != nil {
		return "", fmt.Errorf("refresh devices: %w", err)
	}
	return p.registry.Summary(), nil
}
