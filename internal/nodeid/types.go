package nodeid

// NoSlice marks an address that refers to the whole node rather than one slice.
const NoSlice = -1

// Address identifies an operator node, optionally narrowed to one slice.
type Address struct {
	OpType string
	Name   string
	Slice  int
}

// New creates an address for a whole node.
func New(opType, name string) Address {
	return Address{OpType: opType, Name: name, Slice: NoSlice}
}

// WithSlice returns a copy of the address narrowed to the given slice index.
func (a Address) WithSlice(slice int) Address {
	a.Slice = slice
	return a
}

// HasSlice reports whether the address refers to a single slice.
func (a Address) HasSlice() bool {
	return a.Slice != NoSlice
}

// IsQualified reports whether the op type is known.
func (a Address) IsQualified() bool {
	return a.OpType != ""
}
