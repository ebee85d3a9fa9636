// Package nodestore defines the interface for recording the final compile
// outcome of every node in a run.
//
// # Why Node Store Exists
//
// A run compiles several batches concurrently, one per calling thread, and
// each batch only knows its own nodes. The node store is the one place where
// all of those outcomes meet: it is written by the per-thread workers as their
// batches finish, and read once at the end to build the run report and decide
// the exit status.
//
// The store keeps outcomes, not live node state. Node attributes stay on the
// nodes themselves; an Outcome is a flat snapshot taken after the batch that
// owned the node has resolved it.
//
// # Thread-Safety Requirements
//
// Implementations MUST be safe for concurrent Record calls from different
// threads, and for reads concurrent with writes.
package nodestore

import (
	"context"

	"github.com/specialistvlad/opcompile/internal/node"
	"github.com/specialistvlad/opcompile/internal/nodeid"
)

// Outcome is the resolved state of one node after its batch finished.
type Outcome struct {
	Node    nodeid.Address
	State   node.State
	Thread  uint64
	BatchID string
	// Scope is the id of the scope whose artifact was applied, if any.
	Scope      int64
	BinaryPath string
	JSONPath   string
	// Slices lists the slice indices with their own kernel entry.
	Slices []int
	// FailurePath is set for terminal failures: no_retry, fused_retry or singleton_retry.
	FailurePath string
	Error       string
}

// Store records and serves node outcomes.
type Store interface {
	// Record stores the outcome, replacing any earlier one for the same node.
	Record(ctx context.Context, o Outcome) error

	// Get returns the outcome of a node and whether one was recorded.
	Get(ctx context.Context, id nodeid.Address) (Outcome, bool, error)

	// All returns every recorded outcome ordered by node address.
	All(ctx context.Context) ([]Outcome, error)
}
