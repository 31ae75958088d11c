package registry

import (
	"context"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridci/gridci/internal/config"
)

func TestRegisterAction_DuplicatePanics(t *testing.T) {
	r := New()
	r.RegisterAction("OnRunX", &RegisteredAction{})
	assert.Panics(t, func() {
		r.RegisterAction("OnRunX", &RegisteredAction{})
	})
}

func TestRegisterDefinition_DuplicatePanics(t *testing.T) {
	r := New()
	r.RegisterDefinition(&config.ActionDefinition{Type: "shell"})
	assert.Panics(t, func() {
		r.RegisterDefinition(&config.ActionDefinition{Type: "shell"})
	})
}

func TestDefinition_Lookup(t *testing.T) {
	r := New()
	def := &config.ActionDefinition{Type: "print"}
	r.RegisterDefinition(def)

	require.Same(t, def, r.Definition("print"))
	assert.Nil(t, r.Definition("ghost"))
}

type echoInput struct {
	Message string `grid:"message"`
}

func echoRegistry(inputs map[string]*config.InputDefinition) *Registry {
	r := New()
	r.RegisterAction("OnRunEcho", &RegisteredAction{
		NewInput:  func() any { return new(echoInput) },
		InputType: reflect.TypeOf(echoInput{}),
	})
	r.RegisterDefinition(&config.ActionDefinition{
		Type:      "echo",
		Lifecycle: &config.Lifecycle{OnRun: "OnRunEcho"},
		Inputs:    inputs,
	})
	return r
}

func TestValidate_AcceptsMatchingManifestAndStruct(t *testing.T) {
	r := echoRegistry(map[string]*config.InputDefinition{
		"message": {Name: "message"},
	})
	require.NoError(t, r.Validate(context.Background()))
}

func TestValidate_ManifestInputMissingFromStruct(t *testing.T) {
	r := echoRegistry(map[string]*config.InputDefinition{
		"message": {Name: "message"},
		"volume":  {Name: "volume"},
	})

	err := r.Validate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "volume")
	assert.Contains(t, err.Error(), "not found in Go struct")
}

func TestValidate_StructFieldMissingFromManifest(t *testing.T) {
	r := echoRegistry(nil)

	err := r.Validate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "message")
	assert.Contains(t, err.Error(), "not declared in manifest")
}

func TestValidate_UnregisteredHandlerIsRejected(t *testing.T) {
	r := New()
	r.RegisterDefinition(&config.ActionDefinition{
		Type:      "ghost",
		Lifecycle: &config.Lifecycle{OnRun: "OnRunGhost"},
	})

	err := r.Validate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OnRunGhost")
}
