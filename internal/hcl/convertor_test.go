package hcl

import (
	"context"
	"testing"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/gridci/gridci/internal/config"
)

type decodeTarget struct {
	Command string            `grid:"command"`
	Depth   int               `grid:"depth"`
	Fields  map[string]string `grid:"fields"`
}

func expr(t *testing.T, src string) hcl.Expression {
	t.Helper()
	e, diags := hclsyntax.ParseExpression([]byte(src), "test.hcl", hcl.InitialPos)
	require.False(t, diags.HasErrors(), diags.Error())
	return e
}

func defaultDefs() map[string]*config.InputDefinition {
	depthDefault := cty.NumberIntVal(1)
	return map[string]*config.InputDefinition{
		"command": {Name: "command", Type: cty.String},
		"depth":   {Name: "depth", Type: cty.Number, Default: &depthDefault},
		"fields":  {Name: "fields", Type: cty.Map(cty.String), Optional: true},
	}
}

func TestDecodeInputs_BindsArgumentsAndDefaults(t *testing.T) {
	var target decodeTarget
	args := map[string]hcl.Expression{
		"command": expr(t, `"pytest tests/ -n auto"`),
		"fields":  expr(t, `{ branch = branch }`),
	}
	evalCtx := &hcl.EvalContext{Variables: map[string]cty.Value{
		"branch": cty.StringVal("master"),
	}}

	err := NewConverter().DecodeInputs(context.Background(), &target, args, defaultDefs(), evalCtx)
	require.NoError(t, err)

	assert.Equal(t, "pytest tests/ -n auto", target.Command)
	assert.Equal(t, 1, target.Depth, "missing argument takes the manifest default")
	assert.Equal(t, map[string]string{"branch": "master"}, target.Fields)
}

func TestDecodeInputs_MissingRequiredArgumentFails(t *testing.T) {
	var target decodeTarget
	err := NewConverter().DecodeInputs(context.Background(), &target, nil, defaultDefs(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `missing required argument "command"`)
}

func TestDecodeInputs_UndeclaredArgumentFails(t *testing.T) {
	var target decodeTarget
	args := map[string]hcl.Expression{
		"command": expr(t, `"true"`),
		"shout":   expr(t, `"loud"`),
	}
	err := NewConverter().DecodeInputs(context.Background(), &target, args, defaultDefs(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsupported argument "shout"`)
}

func TestDecodeInputs_TypeMismatchFails(t *testing.T) {
	var target decodeTarget
	args := map[string]hcl.Expression{
		"command": expr(t, `"true"`),
		"depth":   expr(t, `"not-a-number"`),
	}
	err := NewConverter().DecodeInputs(context.Background(), &target, args, defaultDefs(), nil)
	require.Error(t, err)
}

func TestDecodeInputs_OptionalArgumentLeavesZeroValue(t *testing.T) {
	var target decodeTarget
	args := map[string]hcl.Expression{
		"command": expr(t, `"true"`),
	}
	err := NewConverter().DecodeInputs(context.Background(), &target, args, defaultDefs(), nil)
	require.NoError(t, err)
	assert.Nil(t, target.Fields)
}

func TestDecodeInputs_NonStructTargetFails(t *testing.T) {
	var notAStruct int
	err := NewConverter().DecodeInputs(context.Background(), &notAStruct, nil, nil, nil)
	require.Error(t, err)
}
