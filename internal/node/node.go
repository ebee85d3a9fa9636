// Package node defines the operator node handed to the compile scheduler and
// its attribute bag. Attribute values are cty values so that plan files,
// descriptors and compile results share one value model.
package node

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/specialistvlad/opcompile/internal/nodeid"
	"github.com/zclconf/go-cty/cty"
)

// Attribute names written or consumed by the compile scheduler.
const (
	// AttrRollbackIfFailed lists the attributes to delete when the node's fused
	// compile fails and the node is retried on its own.
	AttrRollbackIfFailed = "_rollback_if_failed"
	// AttrNeedRecompile marks a node that must be compiled again from scratch.
	AttrNeedRecompile = "_need_recompile"

	AttrKernelBinPath  = "_kernel_bin_path"
	AttrKernelJSONPath = "_kernel_json_path"
	AttrTilingKey      = "_tiling_key"
	AttrCompileInfo    = "_compile_info"
	AttrSuperKernel    = "_super_kernel"
	AttrCompileScopeID = "_compile_scope_id"
	AttrSliceKernels   = "_slice_kernels"
)

// Node is a single operator in the graph being compiled.
type Node struct {
	addr nodeid.Address

	mu    sync.RWMutex
	attrs map[string]cty.Value

	// state is the node's compile state, managed atomically.
	state atomic.Int32
}

// State is the compile state of a node.
type State int32

const (
	// Pending indicates the node has not been resolved yet.
	Pending State = iota
	// Compiled indicates a compiled artifact has been applied to the node.
	Compiled
	// RolledBack indicates the node's fusion was undone after a failed fused compile.
	RolledBack
	// Failed indicates the node could not be compiled, even after a retry.
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Compiled:
		return "compiled"
	case RolledBack:
		return "rolled_back"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// New creates a node with a private copy of the given attributes.
func New(addr nodeid.Address, attrs map[string]cty.Value) *Node {
	n := &Node{
		addr:  addr.Node(),
		attrs: make(map[string]cty.Value, len(attrs)),
	}
	for k, v := range attrs {
		n.attrs[k] = v
	}
	return n
}

// ID returns the canonical string form of the node's address.
func (n *Node) ID() string {
	return n.addr.String()
}

// Address returns the structured address of the node.
func (n *Node) Address() nodeid.Address {
	return n.addr
}

// Name returns the node's name without its op type.
func (n *Node) Name() string {
	return n.addr.Name
}

// Type returns the node's operator type.
func (n *Node) Type() string {
	return n.addr.OpType
}

// HasAttr reports whether the attribute is present.
func (n *Node) HasAttr(name string) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	_, ok := n.attrs[name]
	return ok
}

// GetAttr returns the attribute value and whether it was present.
func (n *Node) GetAttr(name string) (cty.Value, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	v, ok := n.attrs[name]
	return v, ok
}

// SetAttr stores the attribute and reports whether the node changed. Writing a
// value equal to the current one is a no-op.
func (n *Node) SetAttr(name string, v cty.Value) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if cur, ok := n.attrs[name]; ok && sameValue(cur, v) {
		return false
	}
	n.attrs[name] = v
	return true
}

// DelAttr removes the attribute and reports whether it was present.
func (n *Node) DelAttr(name string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.attrs[name]; !ok {
		return false
	}
	delete(n.attrs, name)
	return true
}

// Attrs returns a snapshot of all attributes.
func (n *Node) Attrs() map[string]cty.Value {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make(map[string]cty.Value, len(n.attrs))
	for k, v := range n.attrs {
		out[k] = v
	}
	return out
}

// AttrNames returns the sorted attribute names.
func (n *Node) AttrNames() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	names := make([]string, 0, len(n.attrs))
	for k := range n.attrs {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// RollbackList returns the attribute names listed in AttrRollbackIfFailed.
// Non-string and unknown elements are skipped.
func (n *Node) RollbackList() []string {
	v, ok := n.GetAttr(AttrRollbackIfFailed)
	if !ok || v.IsNull() || !v.IsKnown() {
		return nil
	}
	ty := v.Type()
	if !ty.IsListType() && !ty.IsSetType() && !ty.IsTupleType() {
		return nil
	}
	var names []string
	for it := v.ElementIterator(); it.Next(); {
		_, el := it.Element()
		if el.IsNull() || !el.IsKnown() || el.Type() != cty.String {
			continue
		}
		names = append(names, el.AsString())
	}
	return names
}

// SetState atomically sets the node's compile state.
func (n *Node) SetState(s State) {
	n.state.Store(int32(s))
}

// GetState atomically retrieves the node's compile state.
func (n *Node) GetState() State {
	return State(n.state.Load())
}

// sameValue compares two cty values, treating unknown results as different.
func sameValue(a, b cty.Value) bool {
	if !a.Type().Equals(b.Type()) {
		return false
	}
	if a.IsNull() || b.IsNull() {
		return a.IsNull() && b.IsNull()
	}
	if !a.IsWhollyKnown() || !b.IsWhollyKnown() {
		return false
	}
	return a.RawEquals(b)
}
