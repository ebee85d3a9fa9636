package scheduler

import (
	"errors"

	"github.com/specialistvlad/opcompile/internal/node"
)

// Stats counts what happened to a batch across both rounds.
type Stats struct {
	Submitted int
	Succeeded int
	Failed    int
	// Absorbed counts slice tasks whose outcome was folded into their scope's.
	Absorbed      int
	CommonApplied int
	SliceApplied  int
	Retries       int
	Rounds        int
}

// RolledBackScope is a fused scope whose failure was resolved by undoing the fusion.
type RolledBackScope struct {
	Scope      ScopeID
	Label      string
	FusionKind string
	FusionAttr string
	Nodes      []*node.Node
	// Cause is the compile failure that triggered the rollback.
	Cause *TaskCompileFailure
}

// Result is the outcome of one Compile call.
type Result struct {
	BatchID string
	Thread  ThreadID

	// Compiled lists the nodes that received an artifact, in application order.
	Compiled   []*node.Node
	RolledBack []RolledBackScope
	// Failures lists the scope-level failures that went through the retry
	// round or became terminal. Rolled-back scopes are resolved and only
	// appear in RolledBack.
	Failures []*TaskCompileFailure
	Terminal []*TerminalCompileFailure
	Stats    Stats
}

// OK reports whether no node failed terminally.
func (r *Result) OK() bool {
	return len(r.Terminal) == 0
}

// Err joins the terminal failures, or returns nil.
func (r *Result) Err() error {
	if r.OK() {
		return nil
	}
	errs := make([]error, 0, len(r.Terminal))
	for _, t := range r.Terminal {
		errs = append(errs, t)
	}
	return errors.Join(errs...)
}
