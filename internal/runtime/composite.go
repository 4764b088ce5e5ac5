package runtime

import (
	"context"
	"strings"
)

// Composite combines multiple context providers. Each provider's
// output is concatenated with blank lines; providers that error are
// skipped so one failing source cannot empty the whole context.
type Composite struct {
	providers []ContextProvider
}

// NewComposite creates a composite from the given providers.
func NewComposite(providers ...ContextProvider) *Composite {
	return &Composite{providers: providers}
}

// Add appends a provider to the composite.
func (c *Composite) Add(provider ContextProvider) {
	if provider != nil {
		c.providers = append(c.providers, provider)
	}
}

// GetContext calls all providers and combines their output.
func (c *Composite) GetContext(ctx context.Context, userMessage string) (string, error) {
	var parts []string
	for _, p := range c.providers {
		content, err := p.GetContext(ctx, userMessage)
		if err != nil {
			continue
		}
		if content != "" {
			parts = append(parts, content)
		}
	}
	return strings.Join(parts, "\n\n"), nil
}
