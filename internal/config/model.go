package config

import (
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// Model is the unified, format-agnostic representation of the entire
// loaded configuration: every workflow found under the given paths.
type Model struct {
	Workflows map[string]*Workflow
}

// Workflow is the format-agnostic representation of a `workflow` block.
type Workflow struct {
	Name        string
	Triggers    Triggers
	Concurrency *Concurrency
	Env         map[string]string
	Jobs        []*Job
}

// Job returns the job with the given name, or nil.
func (w *Workflow) Job(name string) *Job {
	for _, j := range w.Jobs {
		if j.Name == name {
			return j
		}
	}
	return nil
}

// Triggers declares which events cause a workflow to fire.
type Triggers struct {
	Push        *BranchFilter
	PullRequest *BranchFilter
	Manual      bool
}

// BranchFilter restricts a trigger to branches matching any of the given
// patterns. An empty pattern list matches every branch.
type BranchFilter struct {
	Branches []string
}

// Concurrency groups runs of a workflow so that superseded runs can be
// cancelled. Group is an expression evaluated against the triggering event.
type Concurrency struct {
	Group            hcl.Expression
	CancelInProgress bool
}

// Job is the format-agnostic representation of a `job` block.
type Job struct {
	Name      string
	Needs     []string
	Timeout   time.Duration
	Env       map[string]string
	Condition hcl.Expression
	Matrix    *Matrix
	Steps     []*Step
}

// Matrix declares the combination space a job is expanded over.
type Matrix struct {
	// Axes preserves declaration order; expansion order follows it.
	Axes     []Axis
	Excludes []map[string]string
	Includes []map[string]string
}

// Axis is a single named matrix dimension.
type Axis struct {
	Name   string
	Values []string
}

// Step is the format-agnostic representation of a `step` block. Exactly one
// of Run and Action is set.
type Step struct {
	Name            string
	Run             hcl.Expression
	Action          string
	Arguments       map[string]hcl.Expression
	Condition       hcl.Expression
	Env             map[string]string
	WorkDir         string
	ContinueOnError bool
}

// --- Action manifest models ---

// ActionDefinition describes a built-in step action: its input contract and
// the Go handler that implements it.
type ActionDefinition struct {
	Type        string
	Description string
	Lifecycle   *Lifecycle
	Inputs      map[string]*InputDefinition
}

// Lifecycle maps an action's events to Go handler names.
type Lifecycle struct {
	OnRun string
}

// InputDefinition defines a single input argument for an action.
type InputDefinition struct {
	Name        string
	Type        cty.Type
	Description string
	Default     *cty.Value
	Optional    bool
}
