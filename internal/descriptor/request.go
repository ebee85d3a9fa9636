package descriptor

// ContentType marks descriptors produced by this package.
const ContentType = "application/cbor; profile=opcompile-request"

// Request is everything a backend needs to compile one slice of a scope.
type Request struct {
	Scope      int64  `cbor:"scope"`
	Name       string `cbor:"name"`
	Provenance string `cbor:"provenance"`
	FusionKind string `cbor:"fusion_kind,omitempty"`
	// Retry is set for singleton scopes produced by the retry round.
	Retry      bool           `cbor:"retry,omitempty"`
	SliceIndex int            `cbor:"slice_index"`
	SliceCount int            `cbor:"slice_count"`
	Kernel     map[string]any `cbor:"kernel,omitempty"`
	Nodes      []NodeSpec     `cbor:"nodes"`
}

// NodeSpec is one member node of the request.
type NodeSpec struct {
	Type  string         `cbor:"type"`
	Name  string         `cbor:"name"`
	Attrs map[string]any `cbor:"attrs,omitempty"`
}

// ID returns the node's canonical address, e.g. "Conv2D.conv1".
func (n NodeSpec) ID() string {
	if n.Type == "" {
		return n.Name
	}
	return n.Type + "." + n.Name
}

// NodeIDs returns the member addresses in scope order.
func (r *Request) NodeIDs() []string {
	ids := make([]string, 0, len(r.Nodes))
	for _, n := range r.Nodes {
		ids = append(ids, n.ID())
	}
	return ids
}

// Fused reports whether the request compiles more than one node as a unit.
func (r *Request) Fused() bool {
	return len(r.Nodes) > 1
}
