package scheduler

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// batch is the state of one Compile call. It is owned by the calling goroutine
// and never shared, so it carries no locks.
type batch struct {
	id     string
	thread ThreadID
	round  int

	// Per-round state, reset by beginRound.
	tasks     map[TaskID]*CompileTask
	scopes    map[ScopeID]*ScopeGroup
	order     []ScopeID
	submitted int
	finished  int
	succeeded map[TaskID]struct{}
	failed    map[TaskID]struct{}

	stats Stats
}

func newBatch(thread ThreadID) *batch {
	b := &batch{
		id:     uuid.NewString(),
		thread: thread,
	}
	b.beginRound(0)
	return b
}

// beginRound discards the previous round's tasks and scopes.
func (b *batch) beginRound(round int) {
	b.round = round
	b.tasks = make(map[TaskID]*CompileTask)
	b.scopes = make(map[ScopeID]*ScopeGroup)
	b.order = nil
	b.submitted = 0
	b.finished = 0
	b.succeeded = make(map[TaskID]struct{})
	b.failed = make(map[TaskID]struct{})
	b.stats.Rounds = round + 1
}

func (b *batch) addScope(g *ScopeGroup) {
	b.scopes[g.ID] = g
	b.order = append(b.order, g.ID)
}

// track registers a submitted task against its scope.
func (b *batch) track(id TaskID, g *ScopeGroup, slice int) {
	b.tasks[id] = &CompileTask{
		ID:         id,
		Scope:      g.ID,
		SliceIndex: slice,
		Status:     TaskPending,
	}
	g.TaskIDs = append(g.TaskIDs, id)
	b.submitted++
	b.stats.Submitted++
}

// markFinished resolves a pending task. A task the batch does not know, or one
// that was already resolved, breaks the completion accounting.
func (b *batch) markFinished(ft FinishedTask) error {
	t, ok := b.tasks[ft.TaskID]
	if !ok {
		return fmt.Errorf("backend reported unknown task %d", ft.TaskID)
	}
	if t.Status != TaskPending {
		return fmt.Errorf("backend reported task %d twice", ft.TaskID)
	}

	switch ft.Status {
	case TaskSuccess:
		artifact := ft.Artifact
		t.Artifact = &artifact
		b.succeeded[t.ID] = struct{}{}
		b.stats.Succeeded++
	case TaskFailed:
		b.failed[t.ID] = struct{}{}
		b.stats.Failed++
	default:
		return fmt.Errorf("backend reported task %d with status %s", ft.TaskID, ft.Status)
	}
	t.Status = ft.Status
	t.Message = ft.Message
	b.finished++
	return nil
}

// drained reports whether every submitted task of the round has finished.
func (b *batch) drained() bool {
	return b.finished >= b.submitted
}

// pending returns the unresolved tasks ordered by id.
func (b *batch) pending() []*CompileTask {
	var out []*CompileTask
	for _, t := range b.tasks {
		if t.Status == TaskPending {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// groups returns the round's scopes in submission order.
func (b *batch) groups() []*ScopeGroup {
	out := make([]*ScopeGroup, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.scopes[id])
	}
	return out
}
