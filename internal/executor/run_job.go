package executor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"

	"github.com/gridci/gridci/internal/config"
	"github.com/gridci/gridci/internal/ctxlog"
	"github.com/gridci/gridci/internal/plan"
)

// stepOutcome records what a finished step leaves behind for later steps'
// condition expressions.
type stepOutcome struct {
	success bool
	skipped bool
	output  cty.Value
}

// runJob executes every step of one job instance in order.
func (e *Executor) runJob(ctx context.Context, jp *plan.JobPlan) error {
	logger := ctxlog.FromContext(ctx).With("instance", jp.ID)
	logger.Info("▶️ Starting job instance")

	if jp.Job.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, jp.Job.Timeout)
		defer cancel()
	}

	workspace, err := e.createWorkspace(jp)
	if err != nil {
		return err
	}

	jobEnv := e.jobEnv(jp, workspace)
	outcomes := make(map[string]*stepOutcome, len(jp.Job.Steps))
	stepOrder := make([]string, 0, len(jp.Job.Steps))

	for _, step := range jp.Job.Steps {
		if ctx.Err() != nil {
			return fmt.Errorf("job instance %s interrupted: %w", jp.ID, ctx.Err())
		}

		stepLogger := logger.With("step", step.Name)
		evalCtx := e.buildEvalContext(jp, jobEnv, outcomes, stepOrder)

		holds, err := stepConditionHolds(step, evalCtx)
		if err != nil {
			return fmt.Errorf("step %q: %w", step.Name, err)
		}
		if !holds {
			stepLogger.Info("⏭️ Step condition is false, skipping.")
			outcomes[step.Name] = &stepOutcome{skipped: true, output: cty.NullVal(cty.DynamicPseudoType)}
			stepOrder = append(stepOrder, step.Name)
			continue
		}

		stepLogger.Info("▶️ Starting step")
		output, err := e.runStep(ctx, jp, step, workspace, jobEnv, evalCtx)
		if err != nil {
			if step.ContinueOnError {
				stepLogger.Warn("Step failed, continuing per continue_on_error.", "error", err)
				outcomes[step.Name] = &stepOutcome{success: false, output: cty.NullVal(cty.DynamicPseudoType)}
				stepOrder = append(stepOrder, step.Name)
				continue
			}
			return fmt.Errorf("step %q failed: %w", step.Name, err)
		}

		stepLogger.Info("✅ Finished step")
		outcomes[step.Name] = &stepOutcome{success: true, output: output}
		stepOrder = append(stepOrder, step.Name)
	}

	logger.Info("🏁 Finished job instance")
	return nil
}

// runStep dispatches a single step to the shell or to its action handler.
func (e *Executor) runStep(ctx context.Context, jp *plan.JobPlan, step *config.Step, workspace string, jobEnv map[string]string, evalCtx *hcl.EvalContext) (cty.Value, error) {
	if step.Run != nil {
		return e.runShellStep(ctx, jp, step, workspace, jobEnv, evalCtx)
	}
	return e.runActionStep(ctx, jp, step, workspace, jobEnv, evalCtx)
}

// runShellStep evaluates the command expression and executes it via the shell.
func (e *Executor) runShellStep(ctx context.Context, jp *plan.JobPlan, step *config.Step, workspace string, jobEnv map[string]string, evalCtx *hcl.EvalContext) (cty.Value, error) {
	logger := ctxlog.FromContext(ctx).With("instance", jp.ID, "step", step.Name)

	val, diags := step.Run.Value(evalCtx)
	if diags.HasErrors() {
		return cty.NilVal, fmt.Errorf("invalid run expression: %w", diags)
	}
	strVal, err := convert.Convert(val, cty.String)
	if err != nil || strVal.IsNull() {
		return cty.NilVal, fmt.Errorf("run expression must produce a string")
	}
	command := strVal.AsString()

	cmd := exec.CommandContext(ctx, "/bin/sh", "-ec", command)
	cmd.Dir = workspace
	if step.WorkDir != "" {
		cmd.Dir = filepath.Join(workspace, step.WorkDir)
	}
	cmd.Env = flattenEnv(mergeEnv(jobEnv, step.Env))

	sink := newPrefixWriter(e.outW, jp.ID)
	defer sink.Flush()
	cmd.Stdout = sink
	cmd.Stderr = sink

	logger.Debug("Executing shell command.", "command", command, "dir", cmd.Dir)
	if err := cmd.Run(); err != nil {
		return cty.NilVal, fmt.Errorf("command exited with error: %w", err)
	}

	return cty.ObjectVal(map[string]cty.Value{
		"exit_code": cty.NumberIntVal(0),
	}), nil
}

// runActionStep decodes the step's arguments and calls the registered handler.
func (e *Executor) runActionStep(ctx context.Context, jp *plan.JobPlan, step *config.Step, workspace string, jobEnv map[string]string, evalCtx *hcl.EvalContext) (cty.Value, error) {
	logger := ctxlog.FromContext(ctx).With("instance", jp.ID, "step", step.Name)

	actionDef, ok := e.registry.DefinitionRegistry[step.Action]
	if !ok {
		return cty.NilVal, fmt.Errorf("unknown action type '%s'", step.Action)
	}
	handlerName := actionDef.Lifecycle.OnRun
	registeredHandler, ok := e.registry.HandlerRegistry[handlerName]
	if !ok {
		return cty.NilVal, fmt.Errorf("handler '%s' not registered", handlerName)
	}

	inputStruct := registeredHandler.NewInput()
	if inputStruct != nil {
		err := e.converter.DecodeInputs(ctx, inputStruct, step.Arguments, actionDef.Inputs, evalCtx)
		if err != nil {
			return cty.NilVal, fmt.Errorf("failed to decode arguments: %w", err)
		}
	}

	sink := newPrefixWriter(e.outW, jp.ID)
	defer sink.Flush()
	jobCtx := &JobContext{
		InstanceID: jp.ID,
		Workflow:   e.plan.Workflow.Name,
		Workspace:  workspace,
		Env:        mergeEnv(jobEnv, step.Env),
		Stdout:     sink,
	}

	logger.Debug("Calling action handler.", "handler", handlerName)
	handlerFunc := reflect.ValueOf(registeredHandler.Fn)
	callArgs := []reflect.Value{reflect.ValueOf(ctx), reflect.ValueOf(jobCtx)}

	if inputStruct == nil {
		inputType := handlerFunc.Type().In(2)
		callArgs = append(callArgs, reflect.Zero(inputType))
	} else {
		callArgs = append(callArgs, reflect.ValueOf(inputStruct))
	}

	results := handlerFunc.Call(callArgs)
	nativeOutput, errResult := results[0].Interface(), results[1].Interface()
	if errResult != nil {
		return cty.NilVal, errResult.(error)
	}

	ctyOutput, err := toCtyValue(nativeOutput)
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to convert handler output: %w", err)
	}
	return ctyOutput, nil
}

// createWorkspace makes the per-instance working directory.
func (e *Executor) createWorkspace(jp *plan.JobPlan) (string, error) {
	dir := filepath.Join(e.workRoot, sanitizeID(jp.ID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create workspace for %s: %w", jp.ID, err)
	}
	return dir, nil
}

// sanitizeID turns an instance ID into a safe directory name.
func sanitizeID(id string) string {
	r := strings.NewReplacer("/", "_", "[", "_", "]", "", ",", "_", "=", "-", " ", "")
	return r.Replace(id)
}

// stepConditionHolds evaluates a step's `if` expression. A missing condition
// always holds.
func stepConditionHolds(step *config.Step, evalCtx *hcl.EvalContext) (bool, error) {
	if step.Condition == nil {
		return true, nil
	}
	val, diags := step.Condition.Value(evalCtx)
	if diags.HasErrors() {
		return false, fmt.Errorf("invalid if expression: %w", diags)
	}
	boolVal, err := convert.Convert(val, cty.Bool)
	if err != nil {
		return false, fmt.Errorf("if expression is not boolean: %w", err)
	}
	if boolVal.IsNull() {
		return false, fmt.Errorf("if expression evaluated to null")
	}
	return boolVal.True(), nil
}
