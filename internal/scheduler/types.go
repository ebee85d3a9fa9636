package scheduler

import (
	"fmt"

	"github.com/specialistvlad/opcompile/internal/node"
	"github.com/zclconf/go-cty/cty"
)

// TaskID identifies one compile request. Unique for the process lifetime.
type TaskID uint64

// ScopeID identifies one compilation unit within a round.
type ScopeID int64

// ThreadID identifies a calling thread; the backend reports completions per thread.
type ThreadID uint64

// TaskStatus is the state of a single compile task.
type TaskStatus int

const (
	TaskPending TaskStatus = iota
	TaskSuccess
	TaskFailed
)

func (s TaskStatus) String() string {
	switch s {
	case TaskPending:
		return "pending"
	case TaskSuccess:
		return "success"
	case TaskFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText encodes the status by name.
func (s TaskStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText accepts the status names produced by MarshalText.
func (s *TaskStatus) UnmarshalText(text []byte) error {
	switch string(text) {
	case "pending":
		*s = TaskPending
	case "success":
		*s = TaskSuccess
	case "failed":
		*s = TaskFailed
	default:
		return fmt.Errorf("unknown task status %q", text)
	}
	return nil
}

// CompiledArtifact is the output of a successful compile. Paths are opaque to
// the scheduler and passed through untouched.
type CompiledArtifact struct {
	BinaryPath  string          `json:"binary_path" cbor:"binary_path"`
	JSONPath    string          `json:"json_path" cbor:"json_path"`
	TilingKey   string          `json:"tiling_key,omitempty" cbor:"tiling_key,omitempty"`
	CompileInfo string          `json:"compile_info,omitempty" cbor:"compile_info,omitempty"`
	SuperKernel map[string]bool `json:"super_kernel,omitempty" cbor:"super_kernel,omitempty"`
}

// FinishedTask is one entry drained from the backend.
type FinishedTask struct {
	TaskID   TaskID           `json:"task_id"`
	Status   TaskStatus       `json:"status"`
	Artifact CompiledArtifact `json:"artifact"`
	// Message carries the compiler's diagnostic for failed tasks.
	Message string `json:"message,omitempty"`
}

// Descriptor is an opaque, compiler-ready request produced by an Assembler.
type Descriptor struct {
	ContentType string
	Payload     []byte
}

// KernelMetadata narrows a descriptor to one slice of a scope.
type KernelMetadata struct {
	SliceIndex int
	SliceCount int
	Attrs      map[string]cty.Value
}

// CompileTask is one submitted request and its outcome.
type CompileTask struct {
	ID         TaskID
	Scope      ScopeID
	SliceIndex int
	Status     TaskStatus
	Artifact   *CompiledArtifact
	Message    string
}

// ScopeSpec is the caller's description of a compilation unit.
type ScopeSpec struct {
	Name       string
	Nodes      []*node.Node
	Provenance Provenance
	// Slices is the thread-slice count of the op; values below 2 mean unsliced.
	Slices int
	Kernel map[string]cty.Value
}

// ScopeGroup is a compilation unit for one round. It is never mutated after
// its tasks are submitted; a retried scope is reborn as new singleton groups.
type ScopeGroup struct {
	ID         ScopeID
	Name       string
	Nodes      []*node.Node
	Provenance Provenance
	Slices     int
	Kernel     map[string]cty.Value
	// TaskIDs is the ordered list of slice tasks; the first one decides the scope.
	TaskIDs []TaskID

	// retryOf is set on singleton groups produced by the retry controller.
	retryOf *ScopeGroup
	path    FailurePath
}

// IsRetry reports whether the group was produced by the retry round.
func (g *ScopeGroup) IsRetry() bool {
	return g.retryOf != nil
}

// IsSliced reports whether the group expands into more than one slice.
func (g *ScopeGroup) IsSliced() bool {
	return g.Slices > 1
}

// Label is a human-readable name for logs and reports.
func (g *ScopeGroup) Label() string {
	if g.Name != "" {
		return g.Name
	}
	if len(g.Nodes) > 0 {
		return g.Nodes[0].ID()
	}
	return "<empty>"
}
