// Package shell provides the explicit command action. It exists alongside
// the `run` attribute for steps that want argument-level control (workdir,
// custom interpreter) instead of a one-line command string.
package shell

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"reflect"

	"github.com/zclconf/go-cty/cty"

	"github.com/gridci/gridci/internal/config"
	"github.com/gridci/gridci/internal/ctxlog"
	"github.com/gridci/gridci/internal/executor"
	"github.com/gridci/gridci/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the shell action.
type Input struct {
	Command     string            `grid:"command"`
	WorkDir     string            `grid:"workdir"`
	Interpreter string            `grid:"interpreter"`
	Env         map[string]string `grid:"env"`
}

// Output defines the data structure returned by the action.
type Output struct {
	ExitCode int `json:"exit_code"`
}

// OnRunShell is the handler for the 'shell' action's on_run lifecycle event.
func OnRunShell(ctx context.Context, job *executor.JobContext, input *Input) (*Output, error) {
	logger := ctxlog.FromContext(ctx).With("action", "shell")

	interpreter := input.Interpreter
	if interpreter == "" {
		interpreter = "/bin/sh"
	}

	cmd := exec.CommandContext(ctx, interpreter, "-ec", input.Command)
	cmd.Dir = job.Workspace
	if input.WorkDir != "" {
		cmd.Dir = filepath.Join(job.Workspace, input.WorkDir)
	}

	env := job.Env
	if len(input.Env) > 0 {
		env = make(map[string]string, len(job.Env)+len(input.Env))
		for k, v := range job.Env {
			env[k] = v
		}
		for k, v := range input.Env {
			env[k] = v
		}
	}
	for k, v := range env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}

	cmd.Stdout = job.Stdout
	cmd.Stderr = job.Stdout

	logger.Debug("Executing command.", "command", input.Command, "dir", cmd.Dir)
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("command exited with error: %w", err)
	}
	return &Output{ExitCode: 0}, nil
}

// Register registers the handler and manifest with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterAction("OnRunShell", &registry.RegisteredAction{
		NewInput:  func() any { return new(Input) },
		InputType: reflect.TypeOf(Input{}),
		Fn:        OnRunShell,
	})
	r.RegisterDefinition(&config.ActionDefinition{
		Type:        "shell",
		Description: "Runs a command through an interpreter inside the job workspace.",
		Lifecycle:   &config.Lifecycle{OnRun: "OnRunShell"},
		Inputs: map[string]*config.InputDefinition{
			"command":     {Name: "command", Type: cty.String},
			"workdir":     {Name: "workdir", Type: cty.String, Optional: true},
			"interpreter": {Name: "interpreter", Type: cty.String, Optional: true},
			"env":         {Name: "env", Type: cty.Map(cty.String), Optional: true},
		},
	})
}
