package routing

import (
	"fmt"
	"log"
	"school-eta-service/internal/config"
	"school-eta-service/internal/ports"
	"slices"
	"sync"
)

// Registry maps provider names to backends and designates a default.
type Registry struct {
	mu          sync.RWMutex
	backends    map[string]ports.RoutingBackend
	defaultName string
}

func NewRegistry(defaultName string, backends ...ports.RoutingBackend) *Registry {
	r := &Registry{
		backends:    make(map[string]ports.RoutingBackend, len(backends)),
		defaultName: defaultName,
	}
	for _, b := range backends {
		r.Register(b)
	}
	return r
}

// Register adds b, replacing any backend with the same name.
func (r *Registry) Register(b ports.RoutingBackend) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backends[b.Name()] = b
}

func (r *Registry) DefaultName() string { return r.defaultName }

// Names returns the registered provider names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.backends))
	for n := range r.backends {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Resolve picks the backend for name. An empty name selects the default; an
// unknown name is logged and also selects the default. ok is false when the
// default itself is not registered.
func (r *Registry) Resolve(name string) (backend ports.RoutingBackend, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if name != "" {
		if b, found := r.backends[name]; found {
			return b, true
		}
		log.Printf("routing: unsupported provider=%q, using default=%q", name, r.defaultName)
	}

	b, found := r.backends[r.defaultName]
	return b, found
}

// NewRegistryFromConfig builds one backend per configured provider.
func NewRegistryFromConfig(rc config.RoutingConfig) (*Registry, error) {
	reg := NewRegistry(rc.Default)
	for _, p := range rc.Providers {
		b, err := NewBackend(p)
		if err != nil {
			return nil, fmt.Errorf("routing registry: provider %q: %w", p.Name, err)
		}
		reg.Register(b)
	}
	return reg, nil
}

// NewBackend constructs the backend for one provider entry.
func NewBackend(p config.ProviderConfig) (ports.RoutingBackend, error) {
	switch p.Kind {
	case "osrm":
		return NewOSRMBackend(p.Name, p.BaseURL, p.Profile), nil
	case "google":
		return NewGoogleBackend(p.Name, p.APIKey, p.BaseURL), nil
	case "mapbox":
		return NewMapboxBackend(p.Name, p.APIKey, p.BaseURL, p.Profile), nil
	case "ors":
		return NewORSBackend(p.Name, p.APIKey, p.BaseURL, p.Profile)
	default:
		return nil, fmt.Errorf("unknown provider kind %q", p.Kind)
	}
}
