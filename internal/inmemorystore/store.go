// Package inmemorystore provides an ephemeral, thread-safe, in-memory
// implementation of the nodestore.Store interface.
//
// Outcomes are kept in a sync.Map keyed by node address: every thread writes
// disjoint keys, which is the access pattern sync.Map is built for.
package inmemorystore

import (
	"context"
	"sort"
	"sync"

	"github.com/specialistvlad/opcompile/internal/nodeid"
	"github.com/specialistvlad/opcompile/internal/nodestore"
)

// Store is an in-memory implementation of nodestore.Store.
type Store struct {
	outcomes sync.Map // Key: node address string, Value: nodestore.Outcome
}

// New creates a new, empty in-memory outcome store.
func New() nodestore.Store {
	return &Store{}
}

// Record stores the outcome of a node.
func (s *Store) Record(_ context.Context, o nodestore.Outcome) error {
	o.Node = o.Node.Node()
	o.Slices = append([]int(nil), o.Slices...)
	s.outcomes.Store(o.Node.String(), o)
	return nil
}

// Get retrieves the outcome of a node.
func (s *Store) Get(_ context.Context, id nodeid.Address) (nodestore.Outcome, bool, error) {
	v, ok := s.outcomes.Load(id.Node().String())
	if !ok {
		return nodestore.Outcome{}, false, nil
	}
	return v.(nodestore.Outcome), true, nil
}

// All returns a snapshot of every outcome, ordered by node address.
func (s *Store) All(_ context.Context) ([]nodestore.Outcome, error) {
	var out []nodestore.Outcome
	s.outcomes.Range(func(_, v any) bool {
		out = append(out, v.(nodestore.Outcome))
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Node.String() < out[j].Node.String() })
	return out, nil
}
