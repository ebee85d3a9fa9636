package scheduler

import (
	"context"
	"strconv"
	"time"

	"github.com/specialistvlad/opcompile/internal/ctxlog"
)

// maxPendingInDiagnostics bounds the task list printed for long-running batches.
const maxPendingInDiagnostics = 16

// waitAll polls the backend until every task of the round is accounted for.
//
// There is no timeout and the loop does not watch ctx: a backend that never
// reports a task hangs the batch. Progress and long-running diagnostics are
// the only mitigation.
func (s *Scheduler) waitAll(ctx context.Context, b *batch) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Waiting for compile tasks.", "submitted", b.submitted)

	start := time.Now()
	lastReport := start
	for !b.drained() {
		finished, err := s.backend.WaitAllFinished(ctx, b.thread)
		if err != nil {
			return &PollError{Thread: b.thread, Cause: err}
		}
		for _, ft := range finished {
			if err := b.markFinished(ft); err != nil {
				return &PollError{Thread: b.thread, Cause: err}
			}
		}

		now := time.Now()
		if s.opts.ProgressInterval > 0 && now.Sub(lastReport) >= s.opts.ProgressInterval {
			lastReport = now
			s.reportProgress(ctx, b, now.Sub(start))
		}

		if len(finished) == 0 && !b.drained() {
			time.Sleep(s.opts.PollInterval)
		}
	}

	logger.Debug("All compile tasks finished.", "submitted", b.submitted, "failed", len(b.failed), "elapsed", time.Since(start))
	return nil
}

// reportProgress logs how far the round has come and, past the long-running
// threshold, which tasks are still outstanding.
func (s *Scheduler) reportProgress(ctx context.Context, b *batch, elapsed time.Duration) {
	logger := ctxlog.FromContext(ctx)
	logger.Info("Compile progress.", "finished", b.finished, "submitted", b.submitted, "elapsed", elapsed.Round(time.Millisecond))

	if s.opts.LongRunningAfter <= 0 || elapsed < s.opts.LongRunningAfter {
		return
	}
	pending := b.pending()
	labels := make([]string, 0, min(len(pending), maxPendingInDiagnostics))
	for _, t := range pending {
		if len(labels) == maxPendingInDiagnostics {
			break
		}
		labels = append(labels, s.taskLabel(b, t))
	}
	logger.Warn("Compile tasks are taking long.", "pending", len(pending), "elapsed", elapsed.Round(time.Second), "tasks", labels)
}

// taskLabel names a task by the address of its scope's first node and slice.
func (s *Scheduler) taskLabel(b *batch, t *CompileTask) string {
	g := b.scopes[t.Scope]
	if g == nil || len(g.Nodes) == 0 {
		return "<unknown>"
	}
	addr := g.Nodes[0].Address()
	if g.IsSliced() {
		addr = addr.WithSlice(t.SliceIndex)
	}
	if len(g.Nodes) > 1 {
		return addr.String() + "+" + strconv.Itoa(len(g.Nodes)-1)
	}
	return addr.String()
}
