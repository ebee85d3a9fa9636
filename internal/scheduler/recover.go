package scheduler

import (
	"context"
	"slices"

	"github.com/specialistvlad/opcompile/internal/ctxlog"
	"github.com/specialistvlad/opcompile/internal/node"
	"github.com/zclconf/go-cty/cty"
)

// recoverFailures classifies the failed scopes of the first round and returns
// the singleton scopes that make up the retry round.
//
//   - RollbackEligible: strip the fusion attribute, resolved without an error.
//   - retry suppressed by policy: terminal.
//   - RetryableFusion: clean each node with its own rollback list, mark it for
//     recompilation and retry it alone.
//   - Plain: retry each node alone, unchanged.
func (s *Scheduler) recoverFailures(ctx context.Context, failed []scopeOutcome, res *Result) []*ScopeGroup {
	logger := ctxlog.FromContext(ctx)
	var retry []*ScopeGroup

	for _, o := range failed {
		g := o.group
		glog := logger.With("scope_id", g.ID, "scope", g.Label(), "provenance", g.Provenance.Kind())

		if p, ok := g.Provenance.(RollbackEligible); ok {
			s.rollback(g, p, o.failure, res)
			glog.Info("Fused scope failed, fusion rolled back.", "fusion_kind", p.FusionKind, "nodes", len(g.Nodes))
			continue
		}

		if !s.opts.RetryPolicy(g) {
			glog.Warn("Scope failed and retry is suppressed.", "error", o.failure.Message)
			s.terminal(g, PathNone, o.failure, res)
			continue
		}

		var children []*ScopeGroup
		switch g.Provenance.(type) {
		case RetryableFusion:
			for _, n := range g.Nodes {
				for _, attr := range n.RollbackList() {
					n.DelAttr(attr)
				}
				n.SetAttr(node.AttrNeedRecompile, cty.True)
				children = append(children, s.singleton(g, n, PathFusedRetry))
			}
		default:
			path := PathSingletonRetry
			if len(g.Nodes) > 1 {
				path = PathFusedRetry
			}
			for _, n := range g.Nodes {
				children = append(children, s.singleton(g, n, path))
			}
		}
		glog.Info("Scope failed, retrying nodes as singletons.", "retries", len(children), "error", o.failure.Message)
		retry = append(retry, children...)
	}

	return retry
}

// resolveRetryFailures turns every failure of the retry round into a terminal one.
func (s *Scheduler) resolveRetryFailures(ctx context.Context, failed []scopeOutcome, res *Result) {
	logger := ctxlog.FromContext(ctx)
	for _, o := range failed {
		g := o.group
		logger.Error("Retried node failed to compile.", "scope_id", g.ID, "node", g.Label(), "path", g.path.String(), "error", o.failure.Message)
		s.terminal(g, g.path, o.failure, res)
	}
}

func (s *Scheduler) singleton(parent *ScopeGroup, n *node.Node, path FailurePath) *ScopeGroup {
	return &ScopeGroup{
		ID:         s.sctx.NextScopeID(),
		Name:       n.ID(),
		Nodes:      []*node.Node{n},
		Provenance: Plain{},
		Slices:     parent.Slices,
		Kernel:     parent.Kernel,
		retryOf:    parent,
		path:       path,
	}
}

// rollback resolves a failed fusion by undoing it. The scope leaves the
// failure set and is recorded as rolled back instead.
func (s *Scheduler) rollback(g *ScopeGroup, p RollbackEligible, cause *TaskCompileFailure, res *Result) {
	for _, n := range g.Nodes {
		n.DelAttr(p.FusionAttr)
		n.SetState(node.RolledBack)
	}
	res.Failures = slices.DeleteFunc(res.Failures, func(f *TaskCompileFailure) bool { return f == cause })
	res.RolledBack = append(res.RolledBack, RolledBackScope{
		Scope:      g.ID,
		Label:      g.Label(),
		FusionKind: p.FusionKind,
		FusionAttr: p.FusionAttr,
		Nodes:      g.Nodes,
		Cause:      cause,
	})
}

func (s *Scheduler) terminal(g *ScopeGroup, path FailurePath, cause *TaskCompileFailure, res *Result) {
	for _, n := range g.Nodes {
		n.SetState(node.Failed)
		res.Terminal = append(res.Terminal, &TerminalCompileFailure{
			NodeName: n.Name(),
			NodeType: n.Type(),
			Path:     path,
			Cause:    cause,
		})
	}
}
