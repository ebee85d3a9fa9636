package scheduler

import (
	"sort"
	"strconv"

	"github.com/specialistvlad/opcompile/internal/node"
	"github.com/zclconf/go-cty/cty"
)

// applyCommon broadcasts the artifact of the scope's deciding task to every
// member node. A fused group's single artifact belongs to all of its nodes.
// Writing the same artifact twice leaves the nodes unchanged.
func applyCommon(g *ScopeGroup, t *CompileTask) {
	a := t.Artifact
	common := map[string]cty.Value{
		node.AttrKernelBinPath:  cty.StringVal(a.BinaryPath),
		node.AttrKernelJSONPath: cty.StringVal(a.JSONPath),
		node.AttrTilingKey:      cty.StringVal(a.TilingKey),
		node.AttrCompileInfo:    cty.StringVal(a.CompileInfo),
		node.AttrSuperKernel:    superKernelValue(a.SuperKernel),
		node.AttrCompileScopeID: cty.NumberIntVal(int64(g.ID)),
	}
	for _, n := range g.Nodes {
		for name, v := range common {
			n.SetAttr(name, v)
		}
		if g.IsSliced() {
			mergeSliceKernel(n, t)
		}
		n.DelAttr(node.AttrNeedRecompile)
		n.SetState(node.Compiled)
	}
}

// applySlice writes only the slice-specific part of a non-deciding task.
func applySlice(g *ScopeGroup, t *CompileTask) {
	for _, n := range g.Nodes {
		mergeSliceKernel(n, t)
	}
}

func superKernelValue(flags map[string]bool) cty.Value {
	if len(flags) == 0 {
		return cty.EmptyObjectVal
	}
	attrs := make(map[string]cty.Value, len(flags))
	for k, v := range flags {
		attrs[k] = cty.BoolVal(v)
	}
	return cty.ObjectVal(attrs)
}

// mergeSliceKernel adds the task's slice entry to the node's slice kernel map.
func mergeSliceKernel(n *node.Node, t *CompileTask) {
	entries := make(map[string]cty.Value)
	if cur, ok := n.GetAttr(node.AttrSliceKernels); ok && !cur.IsNull() && cur.IsKnown() && cur.Type().IsMapType() {
		for it := cur.ElementIterator(); it.Next(); {
			k, v := it.Element()
			entries[k.AsString()] = v
		}
	}
	entries[strconv.Itoa(t.SliceIndex)] = cty.ObjectVal(map[string]cty.Value{
		"bin_path":   cty.StringVal(t.Artifact.BinaryPath),
		"json_path":  cty.StringVal(t.Artifact.JSONPath),
		"tiling_key": cty.StringVal(t.Artifact.TilingKey),
	})
	n.SetAttr(node.AttrSliceKernels, cty.MapVal(entries))
}

// SliceKernelIndices returns the slice indices recorded on a node, ascending.
func SliceKernelIndices(n *node.Node) []int {
	cur, ok := n.GetAttr(node.AttrSliceKernels)
	if !ok || cur.IsNull() || !cur.Type().IsMapType() {
		return nil
	}
	var out []int
	for it := cur.ElementIterator(); it.Next(); {
		k, _ := it.Element()
		if idx, err := strconv.Atoi(k.AsString()); err == nil {
			out = append(out, idx)
		}
	}
	sort.Ints(out)
	return out
}
