package plan

import (
	"context"
	"fmt"
	"strings"

	"github.com/gridci/gridci/internal/config"
	"github.com/gridci/gridci/internal/ctxlog"
	"github.com/gridci/gridci/internal/matrix"
	"github.com/gridci/gridci/internal/registry"
)

// Validate checks a workflow definition for structural problems without
// reference to any particular event: duplicate or empty names, malformed
// steps, unknown action types, unknown needs targets, and matrix definitions
// whose combinations collide. Every declared matrix combination must produce
// a well-formed job configuration.
func Validate(ctx context.Context, wf *config.Workflow, reg *registry.Registry) error {
	logger := ctxlog.FromContext(ctx).With("workflow", wf.Name)
	var errs []string

	if wf.Name == "" {
		errs = append(errs, "workflow has no name")
	}
	if wf.Triggers.Push == nil && wf.Triggers.PullRequest == nil && !wf.Triggers.Manual {
		errs = append(errs, "workflow declares no triggers; it can never fire")
	}
	if len(wf.Jobs) == 0 {
		errs = append(errs, "workflow declares no jobs")
	}

	jobNames := make(map[string]struct{}, len(wf.Jobs))
	for _, job := range wf.Jobs {
		if job.Name == "" {
			errs = append(errs, "job has no name")
			continue
		}
		if _, dup := jobNames[job.Name]; dup {
			errs = append(errs, fmt.Sprintf("duplicate job %q", job.Name))
			continue
		}
		jobNames[job.Name] = struct{}{}
	}

	for _, job := range wf.Jobs {
		errs = append(errs, validateJob(job, jobNames, reg)...)
	}

	if len(errs) > 0 {
		return fmt.Errorf("workflow %q is invalid:\n  - %s", wf.Name, strings.Join(errs, "\n  - "))
	}

	logger.Debug("Workflow validation passed.", "jobs", len(wf.Jobs))
	return nil
}

// validateJob collects every problem in a single job definition.
func validateJob(job *config.Job, jobNames map[string]struct{}, reg *registry.Registry) []string {
	var errs []string

	for _, need := range job.Needs {
		if need == job.Name {
			errs = append(errs, fmt.Sprintf("job %q needs itself", job.Name))
			continue
		}
		if _, ok := jobNames[need]; !ok {
			errs = append(errs, fmt.Sprintf("job %q needs unknown job %q", job.Name, need))
		}
	}

	if len(job.Steps) == 0 {
		errs = append(errs, fmt.Sprintf("job %q has no steps", job.Name))
	}

	stepNames := make(map[string]struct{}, len(job.Steps))
	for _, step := range job.Steps {
		if step.Name == "" {
			errs = append(errs, fmt.Sprintf("job %q: step has no name", job.Name))
			continue
		}
		if _, dup := stepNames[step.Name]; dup {
			errs = append(errs, fmt.Sprintf("job %q: duplicate step %q", job.Name, step.Name))
		}
		stepNames[step.Name] = struct{}{}

		hasRun := step.Run != nil
		hasAction := step.Action != ""
		switch {
		case hasRun && hasAction:
			errs = append(errs, fmt.Sprintf("job %q step %q: both run and action set", job.Name, step.Name))
		case !hasRun && !hasAction:
			errs = append(errs, fmt.Sprintf("job %q step %q: neither run nor action set", job.Name, step.Name))
		case hasAction:
			if reg.Definition(step.Action) == nil {
				errs = append(errs, fmt.Sprintf("job %q step %q: unknown action type %q", job.Name, step.Name, step.Action))
			}
		}
		if len(step.Arguments) > 0 && !hasAction {
			errs = append(errs, fmt.Sprintf("job %q step %q: with block requires an action", job.Name, step.Name))
		}
	}

	errs = append(errs, validateMatrix(job)...)
	return errs
}

// validateMatrix expands the job's matrix once to surface definition errors
// (empty axes, rules naming unknown axes, colliding combinations) before a
// run is attempted.
func validateMatrix(job *config.Job) []string {
	var errs []string
	m := job.Matrix
	if m == nil {
		return nil
	}

	axisNames := make(map[string]struct{}, len(m.Axes))
	for _, a := range m.Axes {
		axisNames[a.Name] = struct{}{}
	}
	for _, rule := range m.Excludes {
		for k := range rule {
			if _, ok := axisNames[k]; !ok {
				errs = append(errs, fmt.Sprintf("job %q: exclude rule names unknown axis %q", job.Name, k))
			}
		}
	}

	combos, err := matrix.Expand(m)
	if err != nil {
		errs = append(errs, fmt.Sprintf("job %q: %v", job.Name, err))
		return errs
	}

	seen := make(map[string]struct{}, len(combos))
	for _, c := range combos {
		id := InstanceID(job.Name, c)
		if _, dup := seen[id]; dup {
			errs = append(errs, fmt.Sprintf("job %q: matrix produces colliding instance %s", job.Name, id))
		}
		seen[id] = struct{}{}
	}
	return errs
}
