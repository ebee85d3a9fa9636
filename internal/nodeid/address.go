package nodeid

import (
	"strconv"
	"strings"
)

// String serializes the address into its canonical form.
func (a Address) String() string {
	var sb strings.Builder
	if a.OpType != "" {
		sb.WriteString(a.OpType)
		sb.WriteByte('.')
	}
	sb.WriteString(a.Name)
	if a.HasSlice() {
		sb.WriteByte('[')
		sb.WriteString(strconv.Itoa(a.Slice))
		sb.WriteByte(']')
	}
	return sb.String()
}

// Node drops the slice index, returning the address of the whole node.
func (a Address) Node() Address {
	a.Slice = NoSlice
	return a
}

// Matches reports whether a (possibly unqualified) reference points at the
// node identified by other. Slice indices are ignored.
func (a Address) Matches(other Address) bool {
	if a.Name != other.Name {
		return false
	}
	return a.OpType == "" || other.OpType == "" || a.OpType == other.OpType
}
