package simulated

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/specialistvlad/opcompile/internal/ctxlog"
	"github.com/specialistvlad/opcompile/internal/descriptor"
	"github.com/specialistvlad/opcompile/internal/scheduler"
)

// ErrClosed is returned by a backend that has been closed.
var ErrClosed = errors.New("simulated backend is closed")

// Options configures the simulated compiler.
type Options struct {
	Workers int           `cty:"workers"`
	Latency time.Duration `cty:"latency"`
	// FailNodes fails every compile containing one of these nodes.
	FailNodes []string `cty:"fail_nodes"`
	// FailFused fails only fused compiles (more than one node) containing one of these nodes.
	FailFused []string `cty:"fail_fused"`
	OutputDir string   `cty:"output_dir"`
}

// DefaultOptions returns the options used for unset plan attributes.
func DefaultOptions() *Options {
	return &Options{Workers: 4, OutputDir: "kernel_meta"}
}

type job struct {
	task   scheduler.TaskID
	thread scheduler.ThreadID
	req    *descriptor.Request
}

// Backend implements registry.Backend.
type Backend struct {
	opts      Options
	failNodes map[string]struct{}
	failFused map[string]struct{}
	logger    *slog.Logger

	jobs chan job
	stop chan struct{}
	wg   sync.WaitGroup

	mu       sync.Mutex
	finished map[scheduler.ThreadID][]scheduler.FinishedTask
	closed   atomic.Bool
}

// New starts the worker pool. Workers run until Close.
func New(ctx context.Context, opts *Options) (*Backend, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.Workers < 1 {
		return nil, fmt.Errorf("workers must be at least 1, got %d", opts.Workers)
	}
	if opts.Latency < 0 {
		return nil, fmt.Errorf("latency must not be negative, got %s", opts.Latency)
	}
	b := &Backend{
		opts:      *opts,
		failNodes: toSet(opts.FailNodes),
		failFused: toSet(opts.FailFused),
		logger:    ctxlog.FromContext(ctx).With("backend", Name),
		jobs:      make(chan job, opts.Workers*16),
		stop:      make(chan struct{}),
		finished:  make(map[scheduler.ThreadID][]scheduler.FinishedTask),
	}
	b.logger.Debug("Starting worker pool.", "workers", opts.Workers, "latency", opts.Latency)
	for i := 0; i < opts.Workers; i++ {
		b.wg.Add(1)
		go b.worker(i)
	}
	return b, nil
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		set[it] = struct{}{}
	}
	return set
}

// SubmitTask decodes the descriptor and queues it for a worker.
func (b *Backend) SubmitTask(ctx context.Context, desc scheduler.Descriptor, task scheduler.TaskID, thread scheduler.ThreadID) error {
	if b.closed.Load() {
		return ErrClosed
	}
	req, err := descriptor.Decode(desc)
	if err != nil {
		return err
	}
	select {
	case b.jobs <- job{task: task, thread: thread, req: req}:
		return nil
	case <-b.stop:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WaitAllFinished drains the tasks finished for the thread since the last call.
func (b *Backend) WaitAllFinished(_ context.Context, thread scheduler.ThreadID) ([]scheduler.FinishedTask, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	done := b.finished[thread]
	if len(done) == 0 && b.closed.Load() {
		return nil, ErrClosed
	}
	delete(b.finished, thread)
	return done, nil
}

// Close stops the workers. Queued but unstarted compiles are dropped.
func (b *Backend) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(b.stop)
	b.wg.Wait()
	b.logger.Debug("Worker pool stopped.")
	return nil
}

func (b *Backend) worker(id int) {
	defer b.wg.Done()
	logger := b.logger.With("workerID", id)
	for {
		select {
		case <-b.stop:
			return
		case j := <-b.jobs:
			if b.opts.Latency > 0 {
				select {
				case <-time.After(b.opts.Latency):
				case <-b.stop:
					return
				}
			}
			ft := b.compile(j)
			logger.Debug("Compile finished.", "task", j.task, "thread", j.thread, "scope", j.req.Name, "status", ft.Status)
			b.mu.Lock()
			b.finished[j.thread] = append(b.finished[j.thread], ft)
			b.mu.Unlock()
		}
	}
}

func (b *Backend) compile(j job) scheduler.FinishedTask {
	ft := scheduler.FinishedTask{TaskID: j.task}
	if msg := b.failure(j.req); msg != "" {
		ft.Status = scheduler.TaskFailed
		ft.Message = msg
		return ft
	}
	ft.Status = scheduler.TaskSuccess
	ft.Artifact = b.artifact(j.req)
	return ft
}

func (b *Backend) failure(req *descriptor.Request) string {
	for _, id := range req.NodeIDs() {
		if _, ok := b.failNodes[id]; ok {
			return fmt.Sprintf("compile of %s rejected by the simulated compiler", id)
		}
		if _, ok := b.failFused[id]; ok && req.Fused() {
			return fmt.Sprintf("fused compile containing %s rejected by the simulated compiler", id)
		}
	}
	return ""
}

// artifact derives paths from the scope name and slice, so equal requests
// always produce equal artifacts.
func (b *Backend) artifact(req *descriptor.Request) scheduler.CompiledArtifact {
	base := kernelName(req)
	a := scheduler.CompiledArtifact{
		BinaryPath: filepath.Join(b.opts.OutputDir, base+".o"),
		JSONPath:   filepath.Join(b.opts.OutputDir, base+".json"),
	}
	if req.SliceCount > 1 {
		a.TilingKey = fmt.Sprint(req.SliceIndex)
	}
	if len(req.Kernel) > 0 {
		info, err := json.Marshal(req.Kernel)
		if err == nil {
			a.CompileInfo = string(info)
		}
	}
	return a
}

func kernelName(req *descriptor.Request) string {
	name := strings.NewReplacer(".", "_", "/", "_", " ", "_").Replace(req.Name)
	if req.Retry {
		name += "_retry"
	}
	if req.SliceCount > 1 {
		name = fmt.Sprintf("%s_s%d", name, req.SliceIndex)
	}
	return name
}
