package config

import (
	"context"

	"github.com/hashicorp/hcl/v2"
)

// Loader is the interface for a format-specific configuration loader.
type Loader interface {
	// Load reads workflow definitions from the given paths, translates them
	// into the format-agnostic model, and returns a matching Converter.
	Load(ctx context.Context, paths ...string) (*Model, Converter, error)
}

// Converter is the interface for a format-specific data binding and type
// conversion implementation. It bridges raw configuration expressions and
// the Go structs used by action handlers.
type Converter interface {
	// DecodeInputs evaluates the given argument expressions against evalCtx,
	// applies defaults and type constraints from defs, and binds the results
	// into inputStruct.
	DecodeInputs(
		ctx context.Context,
		inputStruct any,
		args map[string]hcl.Expression,
		defs map[string]*InputDefinition,
		evalCtx *hcl.EvalContext,
	) error
}
