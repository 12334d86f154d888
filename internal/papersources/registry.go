package papersources

import (
	"sort"
	"sync"
)

// Registry holds the configured citation sources by configuration key.
// It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	sources map[string]CitationSource
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sources: make(map[string]CitationSource),
	}
}

// Register adds a source under its configuration key (e.g. "scholar"),
// replacing any source with the same key.
func (r *Registry) Register(key string, source CitationSource) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[key] = source
}

// Get returns a source by key, or nil if not found.
func (r *Registry) Get(name string) CitationSource {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sources[name]
}

// Names returns the registered keys in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.sources))
	for name := range r.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// EnabledSources returns only enabled sources, sorted by key.
func (r *Registry) EnabledSources() []CitationSource {
	var enabled []CitationSource
	for _, name := range r.Names() {
		if s := r.Get(name); s != nil && s.IsEnabled() {
			enabled = append(enabled, s)
		}
	}
	return enabled
}

// Ordered returns the registered sources in the given key order, skipping
// unknown keys and duplicates.
func (r *Registry) Ordered(order []string) []CitationSource {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool, len(order))
	sources := make([]CitationSource, 0, len(order))
	for _, name := range order {
		s, ok := r.sources[name]
		if !ok || seen[name] {
			continue
		}
		seen[name] = true
		sources = append(sources, s)
	}
	return sources
}
