// Package config defines the format-agnostic model of a compile plan: the
// scheduler settings, the backend to use, the operator nodes and the scopes
// they are grouped into. A format-specific Loader (see internal/hcl) produces
// the Model; the application turns it into scheduler input.
package config
