package hcl

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/gridci/gridci/internal/config"
	"github.com/gridci/gridci/internal/ctxlog"
)

// Converter is the HCL-specific implementation of config.Converter.
type Converter struct{}

// NewConverter creates a new HCL data binding converter.
func NewConverter() *Converter {
	return &Converter{}
}

// DecodeInputs evaluates argument expressions and binds them into the fields
// of inputStruct. Fields are matched to input definitions by their `grid`
// struct tag. Missing arguments fall back to the manifest default; a missing
// required argument is an error.
func (c *Converter) DecodeInputs(
	ctx context.Context,
	inputStruct any,
	args map[string]hcl.Expression,
	defs map[string]*config.InputDefinition,
	evalCtx *hcl.EvalContext,
) error {
	logger := ctxlog.FromContext(ctx)

	target := reflect.ValueOf(inputStruct)
	if target.Kind() != reflect.Pointer || target.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("input target must be a pointer to struct, got %T", inputStruct)
	}
	elem := target.Elem()

	fieldsByName := make(map[string]reflect.Value)
	for i := 0; i < elem.NumField(); i++ {
		field := elem.Type().Field(i)
		if !field.IsExported() {
			continue
		}
		tagName := strings.Split(field.Tag.Get("grid"), ",")[0]
		if tagName == "" || tagName == "-" {
			continue
		}
		fieldsByName[tagName] = elem.Field(i)
	}

	// Reject arguments that the manifest does not declare.
	for name := range args {
		if _, ok := defs[name]; !ok {
			return fmt.Errorf("unsupported argument %q", name)
		}
	}

	for name, def := range defs {
		field, ok := fieldsByName[name]
		if !ok {
			// Parity between manifest and struct is enforced at registration.
			continue
		}

		val, resolved, err := c.resolveValue(name, def, args, evalCtx)
		if err != nil {
			return err
		}
		if !resolved || val.IsNull() {
			continue // Leave the zero value in place.
		}

		impliedTy, err := gocty.ImpliedType(field.Interface())
		if err != nil {
			return fmt.Errorf("argument %q: unsupported Go field type %s: %w", name, field.Type(), err)
		}
		converted, err := convert.Convert(val, impliedTy)
		if err != nil {
			return fmt.Errorf("argument %q: %w", name, err)
		}

		fieldPtr := field.Addr().Interface()
		if err := gocty.FromCtyValue(converted, fieldPtr); err != nil {
			return fmt.Errorf("argument %q: %w", name, err)
		}
	}

	logger.Debug("Decoded action inputs.", "count", len(defs))
	return nil
}

// resolveValue evaluates the expression for a single argument, applying the
// manifest's type constraint, default, and optionality rules. The boolean
// reports whether a usable value was produced.
func (c *Converter) resolveValue(
	name string,
	def *config.InputDefinition,
	args map[string]hcl.Expression,
	evalCtx *hcl.EvalContext,
) (cty.Value, bool, error) {
	expr, given := args[name]
	if !given || expr == nil {
		if def.Default != nil {
			return *def.Default, true, nil
		}
		if def.Optional {
			return cty.NilVal, false, nil
		}
		return cty.NilVal, false, fmt.Errorf("missing required argument %q", name)
	}

	val, diags := expr.Value(evalCtx)
	if diags.HasErrors() {
		return cty.NilVal, false, fmt.Errorf("argument %q: %w", name, diags)
	}

	if def.Type != cty.NilType {
		converted, err := convert.Convert(val, def.Type)
		if err != nil {
			return cty.NilVal, false, fmt.Errorf("argument %q: expected %s: %w", name, def.Type.FriendlyName(), err)
		}
		val = converted
	}

	if val.IsNull() && !def.Optional && def.Default == nil {
		return cty.NilVal, false, fmt.Errorf("argument %q must not be null", name)
	}
	return val, true, nil
}
