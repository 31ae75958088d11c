package plan

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"

	"github.com/gridci/gridci/internal/config"
	"github.com/gridci/gridci/internal/ctxlog"
	"github.com/gridci/gridci/internal/event"
	"github.com/gridci/gridci/internal/matrix"
)

// Plan is the fully expanded execution plan of one workflow for one event.
type Plan struct {
	Workflow *config.Workflow
	Event    event.Event
	// Fired is false when the event does not match the workflow's triggers;
	// Jobs is empty in that case.
	Fired bool
	// Jobs is ordered by job declaration, then matrix expansion order.
	Jobs []*JobPlan
}

// JobPlan is one concrete, runnable instance of a job.
type JobPlan struct {
	// ID is unique within the plan, e.g. "job.tests[python=3.11,shots=100]".
	ID      string
	JobName string
	Job     *config.Job
	Combo   *matrix.Combination
	// Needs holds the resolved instance IDs this instance waits for.
	Needs []string
}

// Edges renders the plan's dependency relation for graph construction.
func (p *Plan) Edges() map[string][]string {
	edges := make(map[string][]string, len(p.Jobs))
	for _, j := range p.Jobs {
		edges[j.ID] = j.Needs
	}
	return edges
}

// Job returns the job plan with the given instance ID, or nil.
func (p *Plan) Job(id string) *JobPlan {
	for _, j := range p.Jobs {
		if j.ID == id {
			return j
		}
	}
	return nil
}

// InstanceID renders the canonical instance ID for a job name and combination.
func InstanceID(jobName string, combo *matrix.Combination) string {
	key := combo.Key()
	if key == "" {
		return fmt.Sprintf("job.%s", jobName)
	}
	return fmt.Sprintf("job.%s[%s]", jobName, key)
}

// Build expands a workflow against an event. The workflow must already have
// passed Validate; Build still reports expansion-level problems (an axis
// with no values, a needs target whose matrix expanded to nothing).
func Build(ctx context.Context, wf *config.Workflow, ev event.Event) (*Plan, error) {
	logger := ctxlog.FromContext(ctx).With("workflow", wf.Name)

	p := &Plan{Workflow: wf, Event: ev}

	if !ev.Matches(wf.Triggers) {
		logger.Debug("Event does not match workflow triggers.", "event", ev.Kind, "ref", ev.Ref)
		return p, nil
	}
	p.Fired = true

	// First pass: expand every job's matrix and instantiate combinations.
	instancesByJob := make(map[string][]string)
	for _, job := range wf.Jobs {
		combos, err := matrix.Expand(job.Matrix)
		if err != nil {
			return nil, fmt.Errorf("job %q: %w", job.Name, err)
		}
		if len(combos) == 0 {
			logger.Warn("Matrix excluded every combination; job will not run.", "job", job.Name)
		}

		for _, combo := range combos {
			include, err := jobConditionHolds(job, combo, ev)
			if err != nil {
				return nil, fmt.Errorf("job %q: %w", job.Name, err)
			}
			if !include {
				logger.Debug("Job condition is false for combination; instance dropped.",
					"job", job.Name, "combination", combo.Key())
				continue
			}

			jp := &JobPlan{
				ID:      InstanceID(job.Name, combo),
				JobName: job.Name,
				Job:     job,
				Combo:   combo,
			}
			p.Jobs = append(p.Jobs, jp)
			instancesByJob[job.Name] = append(instancesByJob[job.Name], jp.ID)
		}
	}

	// Second pass: resolve needs to instance IDs. A job needing "build"
	// waits for every expanded instance of "build".
	for _, jp := range p.Jobs {
		for _, need := range jp.Job.Needs {
			if wf.Job(need) == nil {
				return nil, fmt.Errorf("job %q needs unknown job %q", jp.JobName, need)
			}
			targets, ok := instancesByJob[need]
			if !ok {
				// The needed job exists but every instance was dropped; the
				// dependency is vacuously satisfied.
				logger.Warn("Needed job produced no instances; dependency ignored.",
					"job", jp.JobName, "needs", need)
				continue
			}
			jp.Needs = append(jp.Needs, targets...)
		}
	}

	logger.Debug("Plan built.", "instances", len(p.Jobs))
	return p, nil
}

// jobConditionHolds evaluates a job's `if` expression for one combination.
// A missing condition always holds.
func jobConditionHolds(job *config.Job, combo *matrix.Combination, ev event.Event) (bool, error) {
	if job.Condition == nil {
		return true, nil
	}
	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"matrix": combo.CtyObject(),
			"event":  ev.CtyObject(),
		},
	}
	val, diags := job.Condition.Value(evalCtx)
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
