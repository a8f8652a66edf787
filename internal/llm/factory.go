package llm

import (
	"context"
	"sync"

	"github.com/madhatter5501/aegis/internal/apperr"
)

// Factory creates and caches Provider instances by name.
type Factory struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewFactory returns an empty factory; providers are created lazily.
func NewFactory() *Factory {
	return &Factory{providers: make(map[string]Provider)}
}

// GetProvider returns the named provider, constructing it on first use.
func (f *Factory) GetProvider(name string) (Provider, error) {
	f.mu.RLock()
	if p, ok := f.providers[name]; ok {
		f.mu.RUnlock()
		return p, nil
	}
	f.mu.RUnlock()

	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.providers[name]; ok {
		return p, nil
	}

	var p Provider
	switch name {
	case "anthropic":
		p = NewAnthropicProvider()
	case "openai":
		p = NewOpenAIProvider()
	case "google":
		p = NewGoogleProvider()
	default:
		return nil, apperr.New(apperr.KindInvalidInput, "unknown llm provider %q", name)
	}
	f.providers[name] = p
	return p, nil
}

// DefaultProviderOrder is tried in sequence by Complete when no specific
// provider is requested: prefer the first available collaborator.
var DefaultProviderOrder = []string{"anthropic", "openai", "google"}

// Complete resolves the first available provider in DefaultProviderOrder
// (or the one named by preferredProvider if non-empty and available) and
// calls its Complete.
func (f *Factory) Complete(ctx context.Context, preferredProvider string, req Request) (string, error) {
	order := DefaultProviderOrder
	if preferredProvider != "" {
		order = append([]string{preferredProvider}, order...)
	}

	tried := make(map[string]bool)
	for _, name := range order {
		if tried[name] {
			continue
		}
		tried[name] = true
		p, err := f.GetProvider(name)
		if err != nil {
			continue
		}
		if !p.Available() {
			continue
		}
		return p.Complete(ctx, req)
	}
	return "", apperr.New(apperr.KindLLMError, "no llm provider available")
}
