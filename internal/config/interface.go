package config

import (
	"context"

	"github.com/zclconf/go-cty/cty"
)

// Loader is the interface for a format-specific plan loader.
type Loader interface {
	// Load reads the plan from the given paths, translates it into the
	// format-agnostic model, and returns a matching Converter.
	Load(ctx context.Context, paths ...string) (*Model, Converter, error)
}

// Converter binds raw plan values to the Go types used by backends.
type Converter interface {
	// DecodeOptions fills the `cty`-tagged fields of the struct pointed to by
	// target from the given attributes. Unknown attributes are an error.
	DecodeOptions(ctx context.Context, attrs map[string]cty.Value, target any) error

	// ToCtyValue converts a native Go value into its cty.Value equivalent.
	ToCtyValue(v any) (cty.Value, error)
}
