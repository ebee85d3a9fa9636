package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/specialistvlad/opcompile/internal/ctxlog"
	"github.com/specialistvlad/opcompile/internal/descriptor"
	"github.com/specialistvlad/opcompile/internal/inmemorystore"
	"github.com/specialistvlad/opcompile/internal/node"
	"github.com/specialistvlad/opcompile/internal/nodeid"
	"github.com/specialistvlad/opcompile/internal/nodestore"
	"github.com/specialistvlad/opcompile/internal/registry"
	"github.com/specialistvlad/opcompile/internal/report"
	"github.com/specialistvlad/opcompile/internal/scheduler"
	"github.com/zclconf/go-cty/cty"
	"golang.org/x/sync/errgroup"
)

// TerminalError reports that the run completed but some nodes could not be
// compiled even after recovery.
type TerminalError struct {
	Nodes int
	Err   error
}

func (e *TerminalError) Error() string {
	return fmt.Sprintf("%d node(s) failed to compile: %v", e.Nodes, e.Err)
}

func (e *TerminalError) Unwrap() error { return e.Err }

// Run compiles the plan: one Compile call per thread, all threads
// concurrently against one shared backend.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if a.config.HealthcheckPort > 0 {
		a.startHealthcheckServer(a.config.HealthcheckPort)
		defer a.closeHealthcheckServer(context.WithoutCancel(ctx))
	}

	backend, err := a.newBackend(ctx)
	if err != nil {
		return fmt.Errorf("failed to start %s backend: %w", a.backendType, err)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			a.logger.Warn("Backend close failed.", "error", err)
		}
	}()

	asm, err := descriptor.NewAssembler()
	if err != nil {
		return fmt.Errorf("failed to create descriptor assembler: %w", err)
	}
	sched := scheduler.New(scheduler.NewContext(), backend, asm, a.schedOpts)

	runID := uuid.NewString()
	ctx = ctxlog.With(ctx, "run_id", runID)
	started := time.Now()
	store := inmemorystore.New()
	threads := a.plan.threadIDs()
	a.progress.start(runID, len(threads), len(a.plan.nodes))

	if len(threads) == 0 {
		a.logger.Warn("No nodes found in plan, compilation not required.")
	} else {
		a.logger.Info("🚀 Starting concurrent compilation...", "threads", len(threads), "nodes", len(a.plan.nodes), "backend", a.backendType)
	}

	var (
		mu       sync.Mutex
		sections []report.ThreadReport
		terminal []error
		g        errgroup.Group
	)
	for _, thread := range threads {
		specs := a.plan.threads[thread]
		g.Go(func() error {
			res, err := sched.Compile(ctx, thread, specs)
			if res == nil {
				res = &scheduler.Result{Thread: thread}
			}
			failed, recErr := recordOutcomes(ctx, store, res, specs, err)
			a.progress.threadFinished(countNodes(specs), failed)

			mu.Lock()
			sections = append(sections, report.Thread(res, err))
			if tErr := res.Err(); tErr != nil {
				terminal = append(terminal, tErr)
			}
			mu.Unlock()

			if err != nil {
				return fmt.Errorf("thread %d: %w", thread, err)
			}
			return recErr
		})
	}
	runErr := g.Wait()
	a.logger.Info("🏁 Compilation finished.", "duration", time.Since(started))

	nodes, err := report.Nodes(ctx, store)
	if err != nil {
		return err
	}
	rep := report.Report{
		RunID:    runID,
		Backend:  a.backendType,
		Started:  started.UTC(),
		Duration: time.Since(started).Round(time.Millisecond).String(),
		OK:       runErr == nil && len(terminal) == 0,
		Threads:  sections,
		Nodes:    nodes,
	}
	if err := a.writeReport(rep); err != nil {
		return err
	}

	if runErr != nil {
		return fmt.Errorf("compilation aborted: %w", runErr)
	}
	if len(terminal) > 0 {
		count := 0
		for _, n := range nodes {
			if n.FailurePath != "" {
				count++
			}
		}
		return &TerminalError{Nodes: count, Err: errors.Join(terminal...)}
	}
	a.logger.Debug("App.Run method finished.")
	return nil
}

func (a *App) newBackend(ctx context.Context) (registry.Backend, error) {
	factory, _ := a.registry.Backend(a.backendType)
	var opts any
	if factory.NewOptions != nil {
		opts = factory.NewOptions()
		if err := a.converter.DecodeOptions(ctx, a.backendOptions, opts); err != nil {
			return nil, fmt.Errorf("invalid backend options: %w", err)
		}
	}
	return factory.New(ctx, opts)
}

func (a *App) writeReport(rep report.Report) error {
	switch a.config.ReportPath {
	case "":
		return nil
	case "-":
		w := a.config.ReportOut
		if w == nil {
			w = os.Stdout
		}
		return report.Write(w, rep)
	}
	f, err := os.Create(a.config.ReportPath)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	if err := report.Write(f, rep); err != nil {
		f.Close()
		return err
	}
	a.logger.Info("Report written.", "path", a.config.ReportPath)
	return f.Close()
}

func countNodes(specs []scheduler.ScopeSpec) int {
	n := 0
	for _, s := range specs {
		n += len(s.Nodes)
	}
	return n
}

// recordOutcomes stores the final state of every node of the batch and
// returns how many failed terminally. abort is the structural error that
// stopped the batch, if any.
func recordOutcomes(ctx context.Context, store nodestore.Store, res *scheduler.Result, specs []scheduler.ScopeSpec, abort error) (int, error) {
	failures := make(map[string]*scheduler.TerminalCompileFailure, len(res.Terminal))
	for _, t := range res.Terminal {
		failures[nodeid.New(t.NodeType, t.NodeName).String()] = t
	}
	for _, spec := range specs {
		for _, n := range spec.Nodes {
			o := nodestore.Outcome{
				Node:       n.Address(),
				State:      n.GetState(),
				Thread:     uint64(res.Thread),
				BatchID:    res.BatchID,
				BinaryPath: stringAttr(n, node.AttrKernelBinPath),
				JSONPath:   stringAttr(n, node.AttrKernelJSONPath),
				Slices:     scheduler.SliceKernelIndices(n),
			}
			if v, ok := n.GetAttr(node.AttrCompileScopeID); ok && v.IsKnown() && !v.IsNull() && v.Type() == cty.Number {
				o.Scope, _ = v.AsBigFloat().Int64()
			}
			if t, ok := failures[n.ID()]; ok {
				o.FailurePath = t.Path.String()
				if t.Cause != nil {
					o.Error = t.Cause.Error()
				}
			} else if abort != nil && o.State == node.Pending {
				o.Error = abort.Error()
			}
			if err := store.Record(ctx, o); err != nil {
				return len(failures), fmt.Errorf("recording outcome of %s: %w", n.ID(), err)
			}
		}
	}
	return len(failures), nil
}

func stringAttr(n *node.Node, name string) string {
	v, ok := n.GetAttr(name)
	if !ok || !v.IsKnown() || v.IsNull() || v.Type() != cty.String {
		return ""
	}
	return v.AsString()
}
