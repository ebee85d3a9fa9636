package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/specialistvlad/opcompile/internal/ctxlog"
)

// Options tunes a Scheduler. Zero fields take their defaults.
type Options struct {
	// PollInterval is the pause between empty polls of the backend.
	PollInterval time.Duration
	// ProgressInterval is how often a waiting round logs its progress.
	ProgressInterval time.Duration
	// LongRunningAfter is when the progress log starts listing pending tasks.
	LongRunningAfter time.Duration
	SlicePolicy      SlicePolicy
	RetryPolicy      RetryPolicy
}

const (
	DefaultPollInterval     = 5 * time.Millisecond
	DefaultProgressInterval = 10 * time.Second
	DefaultLongRunningAfter = 60 * time.Second
)

// DefaultOptions returns the options used for zero fields.
func DefaultOptions() Options {
	return Options{
		PollInterval:     DefaultPollInterval,
		ProgressInterval: DefaultProgressInterval,
		LongRunningAfter: DefaultLongRunningAfter,
		SlicePolicy:      FirstLastSlices{},
		RetryPolicy:      AlwaysRetry,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.PollInterval <= 0 {
		o.PollInterval = d.PollInterval
	}
	if o.ProgressInterval <= 0 {
		o.ProgressInterval = d.ProgressInterval
	}
	if o.LongRunningAfter <= 0 {
		o.LongRunningAfter = d.LongRunningAfter
	}
	if o.SlicePolicy == nil {
		o.SlicePolicy = d.SlicePolicy
	}
	if o.RetryPolicy == nil {
		o.RetryPolicy = d.RetryPolicy
	}
	return o
}

// Scheduler compiles batches of scopes against one backend. A Scheduler holds
// no per-batch state; Compile may be called concurrently from different
// threads as long as each call uses its own ThreadID.
type Scheduler struct {
	sctx      *Context
	backend   Backend
	assembler Assembler
	opts      Options
}

// New creates a Scheduler. It panics on a nil collaborator, which is a wiring
// bug rather than a runtime condition.
func New(sctx *Context, backend Backend, assembler Assembler, opts Options) *Scheduler {
	if sctx == nil || backend == nil || assembler == nil {
		panic("scheduler: New requires a context, a backend and an assembler")
	}
	return &Scheduler{
		sctx:      sctx,
		backend:   backend,
		assembler: assembler,
		opts:      opts.withDefaults(),
	}
}

// Options returns the effective options after defaults were applied.
func (s *Scheduler) Options() Options {
	return s.opts
}

// Compile submits every scope, waits for all of them, applies the artifacts
// and recovers failures with at most one retry round.
//
// A returned error is structural (assembly, submission or polling) and aborts
// the batch; the Result then holds whatever was applied before the abort.
// Compile failures are never returned as the error: they are either resolved
// or listed in Result.Terminal.
func (s *Scheduler) Compile(ctx context.Context, thread ThreadID, specs []ScopeSpec) (*Result, error) {
	b := newBatch(thread)
	ctx = ctxlog.With(ctx, "thread_id", uint64(thread), "batch_id", b.id)
	logger := ctxlog.FromContext(ctx)
	res := &Result{BatchID: b.id, Thread: thread}

	groups, err := s.newGroups(specs)
	if err != nil {
		return res, err
	}
	if len(groups) == 0 {
		logger.Debug("Empty batch, nothing to compile.")
		return res, nil
	}
	logger.Info("🚀 Compiling batch.", "scopes", len(groups))
	start := time.Now()

	for round := 0; len(groups) > 0; round++ {
		b.beginRound(round)
		rctx := ctxlog.With(ctx, "round", round)

		failed, err := s.runRound(rctx, b, groups, res)
		if err != nil {
			res.Stats = b.stats
			ctxlog.FromContext(rctx).Error("Batch aborted.", "error", err)
			return res, err
		}

		if round == 0 {
			groups = s.recoverFailures(rctx, failed, res)
			b.stats.Retries = len(groups)
			continue
		}
		s.resolveRetryFailures(rctx, failed, res)
		groups = nil
	}

	res.Stats = b.stats
	logger.Info("✅ Batch finished.",
		"compiled", len(res.Compiled),
		"rolled_back", len(res.RolledBack),
		"retries", res.Stats.Retries,
		"terminal", len(res.Terminal),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return res, nil
}

// runRound submits the groups, drains the backend and applies every scope
// that succeeded. It returns the scopes that failed, in submission order.
func (s *Scheduler) runRound(ctx context.Context, b *batch, groups []*ScopeGroup, res *Result) ([]scopeOutcome, error) {
	for _, g := range groups {
		if err := s.submitScope(ctx, b, g); err != nil {
			return nil, err
		}
	}
	if err := s.waitAll(ctx, b); err != nil {
		return nil, err
	}

	var failed []scopeOutcome
	for _, g := range b.groups() {
		o := reconcileScope(b, g)
		b.stats.Absorbed += o.absorbed
		if o.failure != nil {
			res.Failures = append(res.Failures, o.failure)
			failed = append(failed, o)
			continue
		}
		for _, t := range o.dropped {
			ctxlog.FromContext(ctx).Warn("Slice failed after its scope succeeded, slice data dropped.",
				"scope_id", g.ID, "scope", g.Label(), "task", t.ID, "slice", t.SliceIndex, "error", t.Message)
		}
		applyCommon(g, o.first)
		b.stats.CommonApplied++
		for _, t := range o.rest {
			applySlice(g, t)
			b.stats.SliceApplied++
		}
		res.Compiled = append(res.Compiled, g.Nodes...)
	}
	return failed, nil
}

// newGroups turns the caller's specs into first-round groups with fresh ids.
func (s *Scheduler) newGroups(specs []ScopeSpec) ([]*ScopeGroup, error) {
	groups := make([]*ScopeGroup, 0, len(specs))
	for i, spec := range specs {
		if len(spec.Nodes) == 0 {
			return nil, fmt.Errorf("scope %d (%q) has no nodes", i, spec.Name)
		}
		for j, n := range spec.Nodes {
			if n == nil {
				return nil, fmt.Errorf("scope %d (%q) has a nil node at position %d", i, spec.Name, j)
			}
		}
		prov := spec.Provenance
		if prov == nil {
			prov = Plain{}
		}
		groups = append(groups, &ScopeGroup{
			ID:         s.sctx.NextScopeID(),
			Name:       spec.Name,
			Nodes:      spec.Nodes,
			Provenance: prov,
			Slices:     spec.Slices,
			Kernel:     spec.Kernel,
		})
	}
	return groups, nil
}
