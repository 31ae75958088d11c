// Package print provides a diagnostic action that writes its input to the
// job's output stream. Useful for surfacing matrix values and step outputs
// while authoring a workflow.
package print

import (
	"context"
	"fmt"
	"reflect"
	"sort"

	"github.com/zclconf/go-cty/cty"

	"github.com/gridci/gridci/internal/config"
	"github.com/gridci/gridci/internal/ctxlog"
	"github.com/gridci/gridci/internal/executor"
	"github.com/gridci/gridci/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the print action.
type Input struct {
	Message string            `grid:"message"`
	Values  map[string]string `grid:"values"`
}

// OnRunPrint is the handler for the 'print' action's on_run lifecycle event.
func OnRunPrint(ctx context.Context, job *executor.JobContext, input *Input) (any, error) {
	ctxlog.FromContext(ctx).Debug("Printing message.", "instance", job.InstanceID)

	if input.Message != "" {
		fmt.Fprintln(job.Stdout, input.Message)
	}

	keys := make([]string, 0, len(input.Values))
	for k := range input.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(job.Stdout, "%s = %s\n", k, input.Values[k])
	}
	return nil, nil
}

// Register registers the handler and manifest with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterAction("OnRunPrint", &registry.RegisteredAction{
		NewInput:  func() any { return new(Input) },
		InputType: reflect.TypeOf(Input{}),
		Fn:        OnRunPrint,
	})
	r.RegisterDefinition(&config.ActionDefinition{
		Type:        "print",
		Description: "Writes a message and/or a set of key/value pairs to the job output.",
		Lifecycle:   &config.Lifecycle{OnRun: "OnRunPrint"},
		Inputs: map[string]*config.InputDefinition{
			"message": {Name: "message", Type: cty.String, Optional: true},
			"values":  {Name: "values", Type: cty.Map(cty.String), Optional: true},
		},
	})
}
