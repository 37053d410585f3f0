package scanner

import (
	"fmt"
	"sort"
	"strings"

	"RiskScanner/internal/config"
	"RiskScanner/internal/ports"
)

// Factory builds an adapter for one configured source.
type Factory func(cfg config.SourceConfig) (ports.SourceAdapter, error)

// Registry keeps a mapping from adapter kinds to their constructors.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: map[string]Factory{}}
}

// Register adds or replaces the factory for kind.
func (r *Registry) Register(kind string, factory Factory) {
	if r.factories == nil {
		r.factories = map[string]Factory{}
	}
	r.factories[strings.ToLower(kind)] = factory
}

// Kinds lists registered adapter kinds, sorted.
func (r *Registry) Kinds() []string {
	kinds := make([]string, 0, len(r.factories))
	for k := range r.factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Resolve returns the factory for kind or an error if it is absent.
func (r *Registry) Resolve(kind string) (Factory, error) {
	if f, ok := r.factories[strings.ToLower(kind)]; ok {
		return f, nil
	}
	return nil, fmt.Errorf("adapter kind %s is not registered", kind)
}

// Build instantiates every enabled source in config order. Source names must
// be unique because they label diagnostics and the cache key.
func (r *Registry) Build(sources []config.SourceConfig) ([]ports.SourceAdapter, error) {
	seen := map[string]struct{}{}
	adapters := make([]ports.SourceAdapter, 0, len(sources))
	for _, src := range sources {
		if !src.IsEnabled() {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(src.Name))
		if name == "" {
			return nil, fmt.Errorf("source of kind %s has no name", src.Kind)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("duplicate source name %s", name)
		}
		seen[name] = struct{}{}

		factory, err := r.Resolve(src.Kind)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", name, err)
		}
		src.Name = name
		adapter, err := factory(src)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", name, err)
		}
		adapters = append(adapters, adapter)
	}
	return adapters, nil
}
