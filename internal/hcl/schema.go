package hcl

import "github.com/hashicorp/hcl/v2"

// fileRoot decodes every top-level block a plan file may contain. Unknown
// blocks are rejected by gohcl.
type fileRoot struct {
	Schedulers []*schedulerBlock `hcl:"scheduler,block"`
	Backends   []*backendBlock   `hcl:"backend,block"`
	Nodes      []*nodeBlock      `hcl:"node,block"`
	Scopes     []*scopeBlock     `hcl:"scope,block"`
}

type schedulerBlock struct {
	PollInterval     *string  `hcl:"poll_interval,optional"`
	ProgressInterval *string  `hcl:"progress_interval,optional"`
	LongRunningAfter *string  `hcl:"long_running_after,optional"`
	SlicePolicy      *string  `hcl:"slice_policy,optional"`
	SuppressRetry    *bool    `hcl:"suppress_retry,optional"`
	RollbackKinds    []string `hcl:"rollback_kinds,optional"`
}

// backendBlock keeps its body raw; the options are backend-specific.
type backendBlock struct {
	Type string   `hcl:"type,label"`
	Body hcl.Body `hcl:",remain"`
}

type nodeBlock struct {
	Name             string         `hcl:"name,label"`
	Type             string         `hcl:"type"`
	Attrs            hcl.Expression `hcl:"attrs,optional"`
	RollbackIfFailed []string       `hcl:"rollback_if_failed,optional"`
}

type scopeBlock struct {
	Name       string         `hcl:"name,label"`
	Nodes      []string       `hcl:"nodes"`
	Provenance *string        `hcl:"provenance,optional"`
	FusionKind *string        `hcl:"fusion_kind,optional"`
	FusionAttr *string        `hcl:"fusion_attr,optional"`
	Slices     *int           `hcl:"slices,optional"`
	Thread     *int           `hcl:"thread,optional"`
	Kernel     hcl.Expression `hcl:"kernel,optional"`
}
