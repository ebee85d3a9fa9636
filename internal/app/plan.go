package app

import (
	"fmt"
	"slices"
	"sort"

	"github.com/specialistvlad/opcompile/internal/config"
	"github.com/specialistvlad/opcompile/internal/node"
	"github.com/specialistvlad/opcompile/internal/nodeid"
	"github.com/specialistvlad/opcompile/internal/scheduler"
	"github.com/zclconf/go-cty/cty"
)

// plan is the compile work derived from a config model: every node, and the
// scopes each calling thread compiles.
type plan struct {
	nodes   []*node.Node
	threads map[scheduler.ThreadID][]scheduler.ScopeSpec
}

// threadIDs returns the threads with work, ascending.
func (p *plan) threadIDs() []scheduler.ThreadID {
	ids := make([]scheduler.ThreadID, 0, len(p.threads))
	for id := range p.threads {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// buildPlan resolves scope node references and provenance. Nodes that no
// scope claims are compiled as plain singletons on thread 0.
func buildPlan(m *config.Model) (*plan, error) {
	p := &plan{threads: make(map[scheduler.ThreadID][]scheduler.ScopeSpec)}
	for _, cn := range m.Nodes {
		attrs := make(map[string]cty.Value, len(cn.Attrs)+1)
		for k, v := range cn.Attrs {
			attrs[k] = v
		}
		if len(cn.RollbackIfFailed) > 0 {
			names := make([]cty.Value, 0, len(cn.RollbackIfFailed))
			for _, a := range cn.RollbackIfFailed {
				names = append(names, cty.StringVal(a))
			}
			attrs[node.AttrRollbackIfFailed] = cty.ListVal(names)
		}
		p.nodes = append(p.nodes, node.New(nodeid.New(cn.Type, cn.Name), attrs))
	}

	var rollbackKinds []string
	if m.Scheduler != nil {
		rollbackKinds = m.Scheduler.RollbackKinds
	}

	claimed := make(map[*node.Node]string)
	for _, sc := range m.Scopes {
		members := make([]*node.Node, 0, len(sc.Nodes))
		for _, ref := range sc.Nodes {
			n, err := p.resolve(ref)
			if err != nil {
				return nil, fmt.Errorf("scope %q: %w", sc.Name, err)
			}
			if owner, taken := claimed[n]; taken {
				return nil, fmt.Errorf("scope %q: node %s already belongs to scope %q", sc.Name, n.ID(), owner)
			}
			claimed[n] = sc.Name
			members = append(members, n)
		}
		prov, err := scheduler.ParseProvenance(provenanceKind(sc, rollbackKinds), sc.FusionKind, sc.FusionAttr)
		if err != nil {
			return nil, fmt.Errorf("scope %q: %w", sc.Name, err)
		}
		thread := scheduler.ThreadID(sc.Thread)
		p.threads[thread] = append(p.threads[thread], scheduler.ScopeSpec{
			Name:       sc.Name,
			Nodes:      members,
			Provenance: prov,
			Slices:     sc.Slices,
			Kernel:     sc.Kernel,
		})
	}

	for _, n := range p.nodes {
		if _, ok := claimed[n]; ok {
			continue
		}
		p.threads[0] = append(p.threads[0], scheduler.ScopeSpec{
			Nodes:      []*node.Node{n},
			Provenance: scheduler.Plain{},
		})
	}
	return p, nil
}

// provenanceKind picks the provenance of a scope. An explicit value wins;
// otherwise a fused scope whose kind has a safe unfused fallback is rolled
// back on failure and any other fused scope is retried.
func provenanceKind(sc *config.Scope, rollbackKinds []string) string {
	switch {
	case sc.Provenance != "":
		return sc.Provenance
	case sc.FusionKind == "":
		return "plain"
	case slices.Contains(rollbackKinds, sc.FusionKind):
		return "rollback"
	default:
		return "retryable"
	}
}

// resolve finds the node a reference points to. Unqualified references must
// be unambiguous.
func (p *plan) resolve(ref string) (*node.Node, error) {
	addr, err := nodeid.Parse(ref)
	if err != nil {
		return nil, err
	}
	if addr.HasSlice() {
		return nil, fmt.Errorf("node reference %q must not name a slice", ref)
	}
	var found *node.Node
	for _, n := range p.nodes {
		if !addr.Matches(n.Address()) {
			continue
		}
		if found != nil {
			return nil, fmt.Errorf("node reference %q is ambiguous: %s and %s", ref, found.ID(), n.ID())
		}
		found = n
	}
	if found == nil {
		return nil, fmt.Errorf("node reference %q does not match any node", ref)
	}
	return found, nil
}

// schedulerOptions maps the plan's scheduler block onto scheduler options.
func schedulerOptions(s *config.Scheduler, suppressRetry bool) (scheduler.Options, error) {
	opts := scheduler.DefaultOptions()
	if s == nil {
		s = &config.Scheduler{}
	}
	if s.PollInterval != nil {
		opts.PollInterval = *s.PollInterval
	}
	if s.ProgressInterval != nil {
		opts.ProgressInterval = *s.ProgressInterval
	}
	if s.LongRunningAfter != nil {
		opts.LongRunningAfter = *s.LongRunningAfter
	}
	policy, err := scheduler.ParseSlicePolicy(s.SlicePolicy)
	if err != nil {
		return scheduler.Options{}, err
	}
	opts.SlicePolicy = policy
	if suppressRetry || s.SuppressRetry {
		opts.RetryPolicy = scheduler.NeverRetry
	}
	return opts, nil
}
