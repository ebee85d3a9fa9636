package scheduler

import (
	"fmt"
)

// AssemblyError means a descriptor could not be built. Fatal for the batch.
type AssemblyError struct {
	Scope ScopeID
	Label string
	Slice int
	Cause error
}

func (e *AssemblyError) Error() string {
	return fmt.Sprintf("assembling descriptor for scope %d (%s) slice %d: %v", e.Scope, e.Label, e.Slice, e.Cause)
}

func (e *AssemblyError) Unwrap() error { return e.Cause }

// SubmitError means the backend rejected a submission. Fatal for the batch.
type SubmitError struct {
	Task  TaskID
	Scope ScopeID
	Cause error
}

func (e *SubmitError) Error() string {
	return fmt.Sprintf("submitting task %d of scope %d: %v", e.Task, e.Scope, e.Cause)
}

func (e *SubmitError) Unwrap() error { return e.Cause }

// PollError means the completion mechanism itself broke, or reported a task
// this batch does not know. Fatal for the batch.
type PollError struct {
	Thread ThreadID
	Cause  error
}

func (e *PollError) Error() string {
	return fmt.Sprintf("polling finished tasks for thread %d: %v", e.Thread, e.Cause)
}

func (e *PollError) Unwrap() error { return e.Cause }

// TaskCompileFailure is a recoverable, scope-level compile failure.
type TaskCompileFailure struct {
	Scope      ScopeID
	Label      string
	Task       TaskID
	Provenance string
	Message    string
}

func (e *TaskCompileFailure) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("compile of scope %d (%s, %s) failed in task %d", e.Scope, e.Label, e.Provenance, e.Task)
	}
	return fmt.Sprintf("compile of scope %d (%s, %s) failed in task %d: %s", e.Scope, e.Label, e.Provenance, e.Task, e.Message)
}

// TerminalCompileFailure reports a node that is still failing after recovery.
type TerminalCompileFailure struct {
	NodeName string
	NodeType string
	Path     FailurePath
	Cause    *TaskCompileFailure
}

func (e *TerminalCompileFailure) Error() string {
	return fmt.Sprintf("node %s (%s) failed to compile after %s: %v", e.NodeName, e.NodeType, e.Path, e.Cause)
}

func (e *TerminalCompileFailure) Unwrap() error {
	if e.Cause == nil {
		return nil
	}
	return e.Cause
}
