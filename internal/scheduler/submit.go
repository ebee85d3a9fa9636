package scheduler

import (
	"context"

	"github.com/specialistvlad/opcompile/internal/ctxlog"
)

// buildDescriptor delegates to the Assembler. Failures abort the batch.
func (s *Scheduler) buildDescriptor(ctx context.Context, g *ScopeGroup, slice int) (Descriptor, error) {
	meta := KernelMetadata{
		SliceIndex: slice,
		SliceCount: max(g.Slices, 1),
		Attrs:      g.Kernel,
	}
	desc, err := s.assembler.BuildDescriptor(ctx, g, meta)
	if err != nil {
		return Descriptor{}, &AssemblyError{Scope: g.ID, Label: g.Label(), Slice: slice, Cause: err}
	}
	return desc, nil
}

// submitTask allocates a task id, registers it and hands the descriptor to the backend.
func (s *Scheduler) submitTask(ctx context.Context, b *batch, g *ScopeGroup, slice int, desc Descriptor) (TaskID, error) {
	id := s.sctx.NextTaskID()
	b.track(id, g, slice)
	if err := s.backend.SubmitTask(ctx, desc, id, b.thread); err != nil {
		return id, &SubmitError{Task: id, Scope: g.ID, Cause: err}
	}
	return id, nil
}

// submitScope expands the scope into one task per representative slice.
func (s *Scheduler) submitScope(ctx context.Context, b *batch, g *ScopeGroup) error {
	logger := ctxlog.FromContext(ctx).With("scope_id", g.ID, "scope", g.Label())
	b.addScope(g)

	slices := []int{0}
	if g.IsSliced() {
		slices = s.opts.SlicePolicy.Representatives(g.Slices)
		logger.Debug("Expanding sliced scope.", "slices", g.Slices, "policy", s.opts.SlicePolicy.Name(), "representatives", slices)
	}

	for _, slice := range slices {
		desc, err := s.buildDescriptor(ctx, g, slice)
		if err != nil {
			return err
		}
		id, err := s.submitTask(ctx, b, g, slice, desc)
		if err != nil {
			return err
		}
		logger.Debug("Task submitted.", "task_id", id, "slice", slice, "nodes", len(g.Nodes))
	}
	return nil
}
