package executor

import (
	"io"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"

	"github.com/gridci/gridci/internal/plan"
)

// JobContext carries the runtime surroundings of a job instance into action
// handlers: where to work, what environment to use, where to write output.
type JobContext struct {
	InstanceID string
	Workflow   string
	Workspace  string
	Env        map[string]string
	Stdout     io.Writer
}

// buildEvalContext creates the HCL evaluation context for a step: the
// instance's matrix values, the triggering event, the merged environment,
// and the outcomes of the steps that already ran.
func (e *Executor) buildEvalContext(jp *plan.JobPlan, jobEnv map[string]string, outcomes map[string]*stepOutcome, stepOrder []string) *hcl.EvalContext {
	vars := make(map[string]cty.Value)

	vars["matrix"] = jp.Combo.CtyObject()
	vars["event"] = e.plan.Event.CtyObject()

	if len(jobEnv) == 0 {
		vars["env"] = cty.EmptyObjectVal
	} else {
		envVals := make(map[string]cty.Value, len(jobEnv))
		for k, v := range jobEnv {
			envVals[k] = cty.StringVal(v)
		}
		vars["env"] = cty.ObjectVal(envVals)
	}

	stepVals := make(map[string]cty.Value, len(outcomes))
	for _, name := range stepOrder {
		oc := outcomes[name]
		output := oc.output
		if output == cty.NilVal {
			output = cty.NullVal(cty.DynamicPseudoType)
		}
		stepVals[name] = cty.ObjectVal(map[string]cty.Value{
			"success": cty.BoolVal(oc.success),
			"skipped": cty.BoolVal(oc.skipped),
			"output":  output,
		})
	}
	if len(stepVals) == 0 {
		vars["steps"] = cty.EmptyObjectVal
	} else {
		vars["steps"] = cty.ObjectVal(stepVals)
	}

	return &hcl.EvalContext{Variables: vars}
}

// jobEnv merges the environment layers for one instance: process env under
// workflow env under job env, plus the injected GRIDCI_* values.
func (e *Executor) jobEnv(jp *plan.JobPlan, workspace string) map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if pair := strings.SplitN(kv, "=", 2); len(pair) == 2 {
			env[pair[0]] = pair[1]
		}
	}
	env = mergeEnv(env, e.plan.Workflow.Env)
	env = mergeEnv(env, jp.Job.Env)

	env["GRIDCI_WORKFLOW"] = e.plan.Workflow.Name
	env["GRIDCI_JOB"] = jp.JobName
	env["GRIDCI_INSTANCE"] = jp.ID
	env["GRIDCI_WORKSPACE"] = workspace
	env["GRIDCI_EVENT"] = string(e.plan.Event.Kind)
	env["GRIDCI_REF"] = e.plan.Event.Ref
	for k, v := range jp.Combo.Values() {
		env["GRIDCI_MATRIX_"+strings.ToUpper(k)] = v
	}
	return env
}
