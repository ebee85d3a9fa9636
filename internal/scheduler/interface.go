package scheduler

import "context"

// Backend is the native compiler. How it is loaded is not the scheduler's
// concern; see internal/registry for how the application picks one.
//
// # Contract
//
//   - SubmitTask starts compiling the descriptor asynchronously and returns as
//     soon as the request is accepted. An error aborts the whole batch.
//   - WaitAllFinished drains the tasks that finished for the given thread since
//     the previous call. An empty slice with a nil error means "none yet".
//     Every submitted task must eventually be reported exactly once.
//
// Implementations must be safe for concurrent use by different threads.
type Backend interface {
	SubmitTask(ctx context.Context, desc Descriptor, task TaskID, thread ThreadID) error
	WaitAllFinished(ctx context.Context, thread ThreadID) ([]FinishedTask, error)
}

// Assembler turns a scope into a compiler-ready request for one slice. It is
// a pure function from the scheduler's point of view and is never retried.
type Assembler interface {
	BuildDescriptor(ctx context.Context, g *ScopeGroup, meta KernelMetadata) (Descriptor, error)
}

// AssemblerFunc adapts an ordinary function to the Assembler interface.
type AssemblerFunc func(ctx context.Context, g *ScopeGroup, meta KernelMetadata) (Descriptor, error)

// BuildDescriptor calls f.
func (f AssemblerFunc) BuildDescriptor(ctx context.Context, g *ScopeGroup, meta KernelMetadata) (Descriptor, error) {
	return f(ctx, g, meta)
}

// RetryPolicy decides whether a failed, non-rollback scope may be retried.
// Returning false sends its nodes straight to terminal failure.
type RetryPolicy func(g *ScopeGroup) bool

// AlwaysRetry permits the retry round for every scope.
func AlwaysRetry(*ScopeGroup) bool { return true }

// NeverRetry suppresses the retry round, e.g. for build modes that must not
// change fusion decisions after the fact.
func NeverRetry(*ScopeGroup) bool { return false }
