// Package simulated provides an in-process stand-in for the native compiler.
// It decodes descriptor requests, "compiles" them on a fixed worker pool and
// reports deterministic artifact paths. Failures are injected by node address.
package simulated

import (
	"context"

	"github.com/specialistvlad/opcompile/internal/registry"
)

// Name is the backend type used in plan files.
const Name = "simulated"

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the simulated backend factory.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterBackend(Name, &registry.BackendFactory{
		NewOptions: func() any { return DefaultOptions() },
		New: func(ctx context.Context, opts any) (registry.Backend, error) {
			return New(ctx, opts.(*Options))
		},
	})
}
