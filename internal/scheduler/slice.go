package scheduler

import "fmt"

// SlicePolicy chooses which thread-count slices of a sliced op are compiled.
type SlicePolicy interface {
	Name() string
	// Representatives returns the slice indices to compile, in order. The
	// first index is the one that decides the scope's outcome.
	Representatives(slices int) []int
}

// FirstLastSlices compiles only the first and last slice and assumes the
// interior slices are structurally identical to them.
type FirstLastSlices struct{}

func (FirstLastSlices) Name() string { return "first_last" }

func (FirstLastSlices) Representatives(slices int) []int {
	if slices <= 1 {
		return []int{0}
	}
	return []int{0, slices - 1}
}

// AllSlices compiles every slice.
type AllSlices struct{}

func (AllSlices) Name() string { return "all" }

func (AllSlices) Representatives(slices int) []int {
	if slices <= 1 {
		return []int{0}
	}
	out := make([]int, slices)
	for i := range out {
		out[i] = i
	}
	return out
}

// ParseSlicePolicy resolves a policy by its plan-file name.
func ParseSlicePolicy(name string) (SlicePolicy, error) {
	switch name {
	case "", "first_last":
		return FirstLastSlices{}, nil
	case "all":
		return AllSlices{}, nil
	default:
		return nil, fmt.Errorf("unknown slice policy %q (expected first_last or all)", name)
	}
}

// scopeOutcome is the reconciled result of all slice tasks of one scope.
type scopeOutcome struct {
	group *ScopeGroup
	// first is the deciding task; rest are the remaining successful slices in order.
	first *CompileTask
	rest  []*CompileTask
	// dropped are later slices that failed after the first one succeeded.
	dropped []*CompileTask
	// failure is set when the scope failed.
	failure *TaskCompileFailure
	// absorbed counts sibling tasks dropped without their own report.
	absorbed int
}

// reconcileScope collapses the slice tasks of a scope into one outcome.
//
// The first task decides. If it failed, the siblings are absorbed without
// classification. If it succeeded, the scope succeeded: later slices that
// also succeeded contribute their slice data, failed ones are absorbed.
func reconcileScope(b *batch, g *ScopeGroup) scopeOutcome {
	out := scopeOutcome{group: g}
	var rest []*CompileTask
	for i, id := range g.TaskIDs {
		t := b.tasks[id]
		if i == 0 {
			out.first = t
			continue
		}
		rest = append(rest, t)
	}

	if out.first.Status == TaskFailed {
		out.failure = newTaskFailure(g, out.first)
		out.absorbed = len(rest)
		return out
	}
	for _, t := range rest {
		if t.Status == TaskFailed {
			out.dropped = append(out.dropped, t)
			continue
		}
		out.rest = append(out.rest, t)
	}
	out.absorbed = len(out.dropped)
	return out
}

func newTaskFailure(g *ScopeGroup, t *CompileTask) *TaskCompileFailure {
	return &TaskCompileFailure{
		Scope:      g.ID,
		Label:      g.Label(),
		Task:       t.ID,
		Provenance: g.Provenance.Kind(),
		Message:    t.Message,
	}
}
