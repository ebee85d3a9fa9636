package descriptor

import (
	"context"
	"fmt"
	"reflect"

	cbor "github.com/fxamacker/cbor/v2"
	"github.com/specialistvlad/opcompile/internal/ctxlog"
	"github.com/specialistvlad/opcompile/internal/scheduler"
)

// Assembler encodes scopes as CBOR Requests. It implements scheduler.Assembler.
type Assembler struct {
	enc cbor.EncMode
}

// NewAssembler creates an Assembler using canonical CBOR encoding.
func NewAssembler() (*Assembler, error) {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return nil, err
	}
	return &Assembler{enc: em}, nil
}

// BuildDescriptor implements scheduler.Assembler.
func (a *Assembler) BuildDescriptor(ctx context.Context, g *scheduler.ScopeGroup, meta scheduler.KernelMetadata) (scheduler.Descriptor, error) {
	req, err := NewRequest(g, meta)
	if err != nil {
		return scheduler.Descriptor{}, err
	}
	payload, err := a.enc.Marshal(req)
	if err != nil {
		return scheduler.Descriptor{}, fmt.Errorf("encoding request: %w", err)
	}
	ctxlog.FromContext(ctx).Debug("Descriptor assembled.", "scope_id", g.ID, "slice", meta.SliceIndex, "bytes", len(payload))
	return scheduler.Descriptor{ContentType: ContentType, Payload: payload}, nil
}

// NewRequest snapshots the scope and its member nodes into a Request.
func NewRequest(g *scheduler.ScopeGroup, meta scheduler.KernelMetadata) (*Request, error) {
	kernel, err := attrsToNative(meta.Attrs)
	if err != nil {
		return nil, fmt.Errorf("kernel metadata: %w", err)
	}
	req := &Request{
		Scope:      int64(g.ID),
		Name:       g.Label(),
		Provenance: g.Provenance.Kind(),
		Retry:      g.IsRetry(),
		SliceIndex: meta.SliceIndex,
		SliceCount: meta.SliceCount,
		Kernel:     kernel,
		Nodes:      make([]NodeSpec, 0, len(g.Nodes)),
	}
	switch p := g.Provenance.(type) {
	case scheduler.RollbackEligible:
		req.FusionKind = p.FusionKind
	case scheduler.RetryableFusion:
		req.FusionKind = p.FusionKind
	}
	for _, n := range g.Nodes {
		attrs, err := attrsToNative(n.Attrs())
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", n.ID(), err)
		}
		req.Nodes = append(req.Nodes, NodeSpec{Type: n.Type(), Name: n.Name(), Attrs: attrs})
	}
	return req, nil
}

var decMode = func() cbor.DecMode {
	dm, err := cbor.DecOptions{DefaultMapType: reflect.TypeOf(map[string]any(nil))}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("descriptor: invalid CBOR decode options: %v", err))
	}
	return dm
}()

// Decode parses a descriptor produced by an Assembler.
func Decode(desc scheduler.Descriptor) (*Request, error) {
	if desc.ContentType != ContentType {
		return nil, fmt.Errorf("unsupported descriptor content type %q", desc.ContentType)
	}
	var req Request
	if err := decMode.Unmarshal(desc.Payload, &req); err != nil {
		return nil, fmt.Errorf("decoding request: %w", err)
	}
	return &req, nil
}
