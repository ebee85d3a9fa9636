package config

import (
	"time"

	"github.com/zclconf/go-cty/cty"
)

// Model is the unified, format-agnostic representation of a compile plan.
type Model struct {
	Scheduler *Scheduler
	Backend   *Backend
	// Nodes are kept in declaration order.
	Nodes  []*Node
	Scopes []*Scope
}

// Scheduler holds the tuning knobs of the compile scheduler. Nil fields keep
// the scheduler defaults.
type Scheduler struct {
	PollInterval     *time.Duration
	ProgressInterval *time.Duration
	LongRunningAfter *time.Duration
	SlicePolicy      string
	SuppressRetry    bool
	// RollbackKinds lists fusion kinds that have a safe unfused fallback.
	// Scopes of these kinds default to rollback provenance.
	RollbackKinds []string
}

// Backend selects the native compiler and carries its raw options.
type Backend struct {
	Type    string
	Options map[string]cty.Value
}

// Node is one operator to compile.
type Node struct {
	Type  string
	Name  string
	Attrs map[string]cty.Value
	// RollbackIfFailed names the attributes to delete if the node's fused
	// compile fails and it is retried alone.
	RollbackIfFailed []string
}

// Scope groups nodes into one compilation unit.
type Scope struct {
	Name string
	// Nodes are node references, either "Type.name" or just "name".
	Nodes      []string
	Provenance string
	FusionKind string
	FusionAttr string
	Slices     int
	Thread     uint64
	Kernel     map[string]cty.Value
}
