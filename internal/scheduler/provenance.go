package scheduler

import "fmt"

// Provenance records how a scope came to be and therefore how its failure is
// recovered. Implementations: Plain, RollbackEligible, RetryableFusion.
type Provenance interface {
	Kind() string
	isProvenance()
}

// Plain is a scope that was not produced by a fusion pass.
type Plain struct{}

func (Plain) Kind() string  { return "plain" }
func (Plain) isProvenance() {}

// RollbackEligible is a fusion with a safe unfused fallback. On failure the
// FusionAttr is stripped from every member and nothing is retried.
type RollbackEligible struct {
	FusionKind string
	FusionAttr string
}

func (RollbackEligible) Kind() string  { return "rollback" }
func (RollbackEligible) isProvenance() {}

// RetryableFusion is a composable fusion without an automatic fallback. On
// failure every member is cleaned with its own rollback list and retried alone.
type RetryableFusion struct {
	FusionKind string
}

func (RetryableFusion) Kind() string  { return "retryable" }
func (RetryableFusion) isProvenance() {}

// ParseProvenance builds a Provenance from its plan-file spelling.
func ParseProvenance(kind, fusionKind, fusionAttr string) (Provenance, error) {
	switch kind {
	case "", "plain":
		return Plain{}, nil
	case "rollback":
		if fusionAttr == "" {
			return nil, fmt.Errorf("rollback provenance requires a fusion attribute")
		}
		return RollbackEligible{FusionKind: fusionKind, FusionAttr: fusionAttr}, nil
	case "retryable":
		return RetryableFusion{FusionKind: fusionKind}, nil
	default:
		return nil, fmt.Errorf("unknown provenance %q (expected plain, rollback or retryable)", kind)
	}
}

// FailurePath tells a caller which recovery route a terminally failed node took.
type FailurePath int

const (
	// PathNone means the failure was not retried (retry suppressed by policy).
	PathNone FailurePath = iota
	// PathFusedRetry means the node was split out of a fused scope and retried alone.
	PathFusedRetry
	// PathSingletonRetry means the node was already alone and was resubmitted once.
	PathSingletonRetry
)

func (p FailurePath) String() string {
	switch p {
	case PathFusedRetry:
		return "fused_retry"
	case PathSingletonRetry:
		return "singleton_retry"
	default:
		return "no_retry"
	}
}
