package nodeid

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	opTypeRegex = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)
	nameRegex   = regexp.MustCompile(`^([A-Za-z0-9_/:-][A-Za-z0-9_./:-]*?)(?:\[(\d+)\])?$`)
)

// Parse builds an Address from `<op_type>.<name>[slice]` or a bare `<name>[slice]`.
// The op type never contains a dot; everything after the first dot is the name.
func Parse(raw string) (Address, error) {
	if raw == "" {
		return Address{}, fmt.Errorf("node address cannot be empty")
	}

	opType, rest := "", raw
	if i := strings.IndexByte(raw, '.'); i >= 0 && opTypeRegex.MatchString(raw[:i]) {
		opType, rest = raw[:i], raw[i+1:]
	}

	m := nameRegex.FindStringSubmatch(rest)
	if m == nil {
		return Address{}, fmt.Errorf("invalid node address %q", raw)
	}
	addr := Address{OpType: opType, Name: m[1], Slice: NoSlice}
	if m[2] != "" {
		idx, err := strconv.Atoi(m[2])
		if err != nil {
			return Address{}, fmt.Errorf("invalid slice index in %q: %w", raw, err)
		}
		addr.Slice = idx
	}
	return addr, nil
}

// MustParse is like Parse but panics on malformed input. Intended for tests and constants.
func MustParse(raw string) Address {
	addr, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return addr
}
