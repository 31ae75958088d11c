// This file contains the logic for translating HCL schema structs into the
// format-agnostic configuration model defined in the config package.

package hcl

import (
	"context"
	"fmt"
	"time"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"

	"github.com/gridci/gridci/internal/config"
	"github.com/gridci/gridci/internal/ctxlog"
)

// translateWorkflow converts the HCL-specific workflow schema into the agnostic model.
func (l *Loader) translateWorkflow(ctx context.Context, w *workflowBlock) (*config.Workflow, error) {
	logger := ctxlog.FromContext(ctx).With("workflow", w.Name)
	logger.Debug("Translating HCL workflow to internal config model.")

	out := &config.Workflow{
		Name: w.Name,
		Env:  w.Env,
	}

	if w.On != nil {
		if w.On.Push != nil {
			out.Triggers.Push = &config.BranchFilter{Branches: w.On.Push.Branches}
		}
		if w.On.PullRequest != nil {
			out.Triggers.PullRequest = &config.BranchFilter{Branches: w.On.PullRequest.Branches}
		}
		out.Triggers.Manual = w.On.Manual != nil
	}

	if w.Concurrency != nil {
		out.Concurrency = &config.Concurrency{
			Group:            w.Concurrency.Group,
			CancelInProgress: w.Concurrency.CancelInProgress,
		}
	}

	for _, j := range w.Jobs {
		job, err := l.translateJob(ctx, j)
		if err != nil {
			return nil, fmt.Errorf("in workflow %q: %w", w.Name, err)
		}
		out.Jobs = append(out.Jobs, job)
	}

	return out, nil
}

// translateJob converts the HCL-specific job schema into the agnostic model.
func (l *Loader) translateJob(ctx context.Context, j *jobBlock) (*config.Job, error) {
	job := &config.Job{
		Name:      j.Name,
		Needs:     j.Needs,
		Env:       j.Env,
		Condition: j.If,
	}

	if j.Timeout != "" {
		d, err := time.ParseDuration(j.Timeout)
		if err != nil {
			return nil, fmt.Errorf("job %q: invalid timeout %q: %w", j.Name, j.Timeout, err)
		}
		job.Timeout = d
	}

	if j.Matrix != nil {
		m, err := translateMatrix(j.Matrix)
		if err != nil {
			return nil, fmt.Errorf("job %q: %w", j.Name, err)
		}
		job.Matrix = m
	}

	for _, s := range j.Steps {
		step, err := translateStep(ctx, s)
		if err != nil {
			return nil, fmt.Errorf("job %q: %w", j.Name, err)
		}
		job.Steps = append(job.Steps, step)
	}

	return job, nil
}

// translateStep converts the HCL-specific step schema into the agnostic model.
func translateStep(ctx context.Context, s *stepBlock) (*config.Step, error) {
	step := &config.Step{
		Name:            s.Name,
		Run:             s.Run,
		Action:          s.Action,
		Condition:       s.If,
		Env:             s.Env,
		WorkDir:         s.WorkDir,
		ContinueOnError: s.ContinueOnError,
	}

	if s.With != nil {
		args, err := extractBodyAttributes(s.With.Body)
		if err != nil {
			return nil, fmt.Errorf("step %q: invalid with block: %w", s.Name, err)
		}
		step.Arguments = args
	}

	return step, nil
}

// translateMatrix converts a matrix block, resolving include/exclude rule
// bodies into plain string maps.
func translateMatrix(m *matrixBlock) (*config.Matrix, error) {
	out := &config.Matrix{}

	seen := make(map[string]struct{})
	for _, a := range m.Axes {
		if _, dup := seen[a.Name]; dup {
			return nil, fmt.Errorf("duplicate matrix axis %q", a.Name)
		}
		seen[a.Name] = struct{}{}
		out.Axes = append(out.Axes, config.Axis{Name: a.Name, Values: a.Values})
	}

	for _, r := range m.Excludes {
		rule, err := translateRule(r)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude rule: %w", err)
		}
		out.Excludes = append(out.Excludes, rule)
	}
	for _, r := range m.Includes {
		rule, err := translateRule(r)
		if err != nil {
			return nil, fmt.Errorf("invalid include rule: %w", err)
		}
		out.Includes = append(out.Includes, rule)
	}

	return out, nil
}

// translateRule evaluates the free-form attributes of an include/exclude
// block. Rule values are constants, so no evaluation context is needed.
func translateRule(r *ruleBlock) (map[string]string, error) {
	attrs, err := extractBodyAttributes(r.Body)
	if err != nil {
		return nil, err
	}
	rule := make(map[string]string, len(attrs))
	for name, expr := range attrs {
		val, diags := expr.Value(nil)
		if diags.HasErrors() {
			return nil, diags
		}
		strVal, convErr := convert.Convert(val, cty.String)
		if convErr != nil {
			return nil, fmt.Errorf("value for %q is not a string: %w", name, convErr)
		}
		if strVal.IsNull() {
			return nil, fmt.Errorf("value for %q must not be null", name)
		}
		rule[name] = strVal.AsString()
	}
	return rule, nil
}
