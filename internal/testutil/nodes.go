package testutil

import (
	"github.com/specialistvlad/opcompile/internal/node"
	"github.com/specialistvlad/opcompile/internal/nodeid"
	"github.com/zclconf/go-cty/cty"
)

// NewNode builds a node of the given op type. attrs may be nil.
func NewNode(opType, name string, attrs map[string]cty.Value) *node.Node {
	return node.New(nodeid.New(opType, name), attrs)
}

// NewNodes builds one node per name, all of the same op type.
func NewNodes(opType string, names ...string) []*node.Node {
	out := make([]*node.Node, 0, len(names))
	for _, name := range names {
		out = append(out, NewNode(opType, name, nil))
	}
	return out
}

// RollbackList builds the value of a node's rollback-if-failed attribute.
func RollbackList(names ...string) cty.Value {
	if len(names) == 0 {
		return cty.ListValEmpty(cty.String)
	}
	vals := make([]cty.Value, 0, len(names))
	for _, n := range names {
		vals = append(vals, cty.StringVal(n))
	}
	return cty.ListVal(vals)
}
