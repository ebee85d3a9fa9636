// Package descriptor is the default Descriptor Assembler. It turns a scope
// into a self-contained compile request and encodes it as deterministic CBOR,
// so that identical scopes always produce byte-identical descriptors.
//
// Backends that understand the format call Decode to get the Request back.
package descriptor
