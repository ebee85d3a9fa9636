package registry

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/specialistvlad/opcompile/internal/scheduler"
)

// Module is the interface that all backend modules implement to be registered.
type Module interface {
	Register(r *Registry)
}

// Backend is a scheduler backend that holds resources until closed.
type Backend interface {
	scheduler.Backend
	io.Closer
}

// BackendFactory builds one kind of backend from its plan-file options.
type BackendFactory struct {
	// NewOptions returns a pointer to a fresh options struct. Exported fields
	// tagged `cty:"name"` are filled from the backend block.
	NewOptions func() any
	// New builds the backend from the decoded options.
	New func(ctx context.Context, opts any) (Backend, error)
}

// Registry holds the registered backend factories for one application instance.
type Registry struct {
	backends map[string]*BackendFactory
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{backends: make(map[string]*BackendFactory)}
}

// RegisterBackend registers a factory under a backend type name. Registering
// the same name twice is a programming error and panics.
func (r *Registry) RegisterBackend(name string, f *BackendFactory) {
	if _, exists := r.backends[name]; exists {
		panic(fmt.Sprintf("backend with name '%s' already registered", name))
	}
	if f == nil || f.New == nil {
		panic(fmt.Sprintf("backend '%s' registered without a constructor", name))
	}
	slog.Debug("Registering backend.", "name", name)
	r.backends[name] = f
}

// Backend returns the factory registered under name.
func (r *Registry) Backend(name string) (*BackendFactory, bool) {
	f, ok := r.backends[name]
	return f, ok
}

// BackendNames returns all registered names, sorted.
func (r *Registry) BackendNames() []string {
	names := make([]string, 0, len(r.backends))
	for name := range r.backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
