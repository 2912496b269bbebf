package provider

import (
	"fmt"
	"sync"
)

type registryKey struct {
	provider string
	model    string
}

// Registry constructs providers on first use and caches them by
// (provider, model) so agents sharing a backend share one client. It is
// owned by the composition root; construction happens at most once per
// key.
type Registry struct {
	mu        sync.Mutex
	providers map[registryKey]Provider
}

// NewRegistry creates an empty provider registry
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[registryKey]Provider),
	}
}

// Get returns the provider for (name, model), constructing it on the
// first request for that pair.
func (r *Registry) Get(name, model string) (Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := registryKey{provider: name, model: model}
	if p, ok := r.providers[key]; ok {
		return p, nil
	}

	p, err := newProvider(name, model)
	if err != nil {
		return nil, err
	}
	r.providers[key] = p
	return p, nil
}

func newProvider(name, model string) (Provider, error) {
	switch name {
	case "anthropic":
		return NewAnthropicProvider(model)
	case "openai":
		return NewOpenAIProvider(model)
	case "gemini", "google":
		return NewGeminiProvider(model)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q (supported: anthropic, openai, gemini)", name)
	}
}
