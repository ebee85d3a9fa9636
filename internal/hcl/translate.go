package hcl

import (
	"fmt"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/opcompile/internal/config"
	"github.com/zclconf/go-cty/cty"
)

func translateScheduler(b *schedulerBlock) (*config.Scheduler, error) {
	s := &config.Scheduler{RollbackKinds: b.RollbackKinds}
	var err error
	if s.PollInterval, err = parseDuration("poll_interval", b.PollInterval); err != nil {
		return nil, err
	}
	if s.ProgressInterval, err = parseDuration("progress_interval", b.ProgressInterval); err != nil {
		return nil, err
	}
	if s.LongRunningAfter, err = parseDuration("long_running_after", b.LongRunningAfter); err != nil {
		return nil, err
	}
	if b.SlicePolicy != nil {
		s.SlicePolicy = *b.SlicePolicy
	}
	if b.SuppressRetry != nil {
		s.SuppressRetry = *b.SuppressRetry
	}
	return s, nil
}

func parseDuration(attr string, raw *string) (*time.Duration, error) {
	if raw == nil {
		return nil, nil
	}
	d, err := time.ParseDuration(*raw)
	if err != nil {
		return nil, fmt.Errorf("scheduler: invalid %s %q: %w", attr, *raw, err)
	}
	if d <= 0 {
		return nil, fmt.Errorf("scheduler: %s must be positive, got %s", attr, d)
	}
	return &d, nil
}

func translateBackend(b *backendBlock) (*config.Backend, error) {
	attrs, diags := b.Body.JustAttributes()
	if diags.HasErrors() {
		return nil, fmt.Errorf("backend %q: %w", b.Type, diags)
	}
	opts := make(map[string]cty.Value, len(attrs))
	for name, attr := range attrs {
		v, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("backend %q, option %q: %w", b.Type, name, diags)
		}
		opts[name] = v
	}
	return &config.Backend{Type: b.Type, Options: opts}, nil
}

func translateNode(b *nodeBlock) (*config.Node, error) {
	if b.Type == "" {
		return nil, fmt.Errorf("node %q: type must not be empty", b.Name)
	}
	attrs, err := evalObject(b.Attrs)
	if err != nil {
		return nil, fmt.Errorf("node %q attrs: %w", b.Name, err)
	}
	return &config.Node{
		Type:             b.Type,
		Name:             b.Name,
		Attrs:            attrs,
		RollbackIfFailed: b.RollbackIfFailed,
	}, nil
}

func translateScope(b *scopeBlock) (*config.Scope, error) {
	if len(b.Nodes) == 0 {
		return nil, fmt.Errorf("scope %q: nodes must not be empty", b.Name)
	}
	kernel, err := evalObject(b.Kernel)
	if err != nil {
		return nil, fmt.Errorf("scope %q kernel: %w", b.Name, err)
	}
	s := &config.Scope{
		Name:   b.Name,
		Nodes:  b.Nodes,
		Kernel: kernel,
	}
	if b.Provenance != nil {
		s.Provenance = *b.Provenance
	}
	if b.FusionKind != nil {
		s.FusionKind = *b.FusionKind
	}
	if b.FusionAttr != nil {
		s.FusionAttr = *b.FusionAttr
	}
	if b.Slices != nil {
		if *b.Slices < 0 {
			return nil, fmt.Errorf("scope %q: slices must not be negative", b.Name)
		}
		s.Slices = *b.Slices
	}
	if b.Thread != nil {
		if *b.Thread < 0 {
			return nil, fmt.Errorf("scope %q: thread must not be negative", b.Name)
		}
		s.Thread = uint64(*b.Thread)
	}
	return s, nil
}

// evalObject evaluates a constant object or map expression into its
// attributes. An absent expression yields nil.
func evalObject(expr hcl.Expression) (map[string]cty.Value, error) {
	if expr == nil {
		return nil, nil
	}
	v, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, diags
	}
	if v.IsNull() {
		return nil, nil
	}
	if !v.IsWhollyKnown() {
		return nil, fmt.Errorf("value must be known")
	}
	ty := v.Type()
	if !ty.IsObjectType() && !ty.IsMapType() {
		return nil, fmt.Errorf("expected an object, got %s", ty.FriendlyName())
	}
	return v.AsValueMap(), nil
}
