// Package socketio provides a backend that forwards compile requests to a
// remote native compiler over socket.io and buffers its completion events.
//
// Wire protocol (both directions carry JSON objects):
//
//	-> compile:submit   {task_id, thread_id, content_type, payload}
//	<- compile:finished {task_id, thread_id, status, artifact, message}
package socketio

import (
	"context"

	"github.com/specialistvlad/opcompile/internal/registry"
)

// Name is the backend type used in plan files.
const Name = "socketio"

// Event names of the wire protocol.
const (
	SubmitEvent   = "compile:submit"
	FinishedEvent = "compile:finished"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the socket.io backend factory.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterBackend(Name, &registry.BackendFactory{
		NewOptions: func() any { return DefaultOptions() },
		New: func(ctx context.Context, opts any) (registry.Backend, error) {
			return Dial(ctx, opts.(*Options))
		},
	})
}
