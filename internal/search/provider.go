// Package search turns normalized queries into ranked product lists. Named
// providers (live scraping, the local catalog, mock data) are tried in a
// fallback order, and the Service fans several queries out over them.
package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/Cyclone1070/gearsearch/internal/product"
)

var (
	ErrNoProviders = errors.New("no search providers configured")
	ErrEmptyQuery  = errors.New("empty query")
)

// Provider produces products for a query.
type Provider interface {
	Name() string
	Search(ctx context.Context, q product.Query) ([]product.Product, error)
}

// Registry stores named providers.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds or replaces a provider by name.
func (r *Registry) Register(provider Provider) {
	if provider == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[provider.Name()] = provider
}

// Get returns a provider by name.
func (r *Registry) Get(name string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	return p, ok
}

// Names returns registered provider names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.providers))
	for name := range r.providers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Chain resolves names into providers in the same order. Duplicates are
// dropped; an unknown name is an error.
func (r *Registry) Chain(names []string) ([]Provider, error) {
	seen := make(map[string]bool, len(names))
	chain := make([]Provider, 0, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		p, ok := r.Get(name)
		if !ok {
			return nil, fmt.Errorf("unknown search provider %q (registered: %v)", name, r.Names())
		}
		chain = append(chain, p)
	}
	if len(chain) == 0 {
		return nil, ErrNoProviders
	}
	return chain, nil
}
