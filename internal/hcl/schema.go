package hcl

import (
	"github.com/hashicorp/hcl/v2"
)

// fileRoot decodes the top-level blocks of a file. Only `workflow` blocks are
// allowed at the top level; anything else surfaces as a decode diagnostic.
type fileRoot struct {
	Workflows []*workflowBlock `hcl:"workflow,block"`
}

// workflowBlock is the HCL-specific schema for a `workflow` block.
type workflowBlock struct {
	Name        string            `hcl:"name,label"`
	Env         map[string]string `hcl:"env,optional"`
	On          *onBlock          `hcl:"on,block"`
	Concurrency *concurrencyBlock `hcl:"concurrency,block"`
	Jobs        []*jobBlock       `hcl:"job,block"`
}

// onBlock declares the trigger conditions of a workflow.
type onBlock struct {
	Push        *filterBlock `hcl:"push,block"`
	PullRequest *filterBlock `hcl:"pull_request,block"`
	Manual      *manualBlock `hcl:"manual,block"`
}

// filterBlock restricts a trigger to a set of branch patterns.
type filterBlock struct {
	Branches []string `hcl:"branches,optional"`
}

// manualBlock enables manual dispatch. It has no body attributes.
type manualBlock struct{}

// concurrencyBlock declares the run-superseding policy of a workflow.
type concurrencyBlock struct {
	// Group stays an expression: it typically interpolates event data.
	Group            hcl.Expression `hcl:"group"`
	CancelInProgress bool           `hcl:"cancel_in_progress,optional"`
}

// jobBlock is the HCL-specific schema for a `job` block.
type jobBlock struct {
	Name    string            `hcl:"name,label"`
	Needs   []string          `hcl:"needs,optional"`
	Timeout string            `hcl:"timeout,optional"`
	Env     map[string]string `hcl:"env,optional"`
	If      hcl.Expression    `hcl:"if,optional"`
	Matrix  *matrixBlock      `hcl:"matrix,block"`
	Steps   []*stepBlock      `hcl:"step,block"`
}

// matrixBlock declares the combination space of a job.
type matrixBlock struct {
	Axes     []*axisBlock `hcl:"axis,block"`
	Excludes []*ruleBlock `hcl:"exclude,block"`
	Includes []*ruleBlock `hcl:"include,block"`
}

// axisBlock is a single named matrix dimension.
type axisBlock struct {
	Name   string   `hcl:"name,label"`
	Values []string `hcl:"values"`
}

// ruleBlock carries the free-form key/value pairs of an include or exclude
// rule. Keys are axis names, so the schema cannot enumerate them.
type ruleBlock struct {
	Body hcl.Body `hcl:",remain"`
}

// stepBlock is the HCL-specific schema for a `step` block.
type stepBlock struct {
	Name            string            `hcl:"name,label"`
	Run             hcl.Expression    `hcl:"run,optional"`
	Action          string            `hcl:"action,optional"`
	If              hcl.Expression    `hcl:"if,optional"`
	Env             map[string]string `hcl:"env,optional"`
	WorkDir         string            `hcl:"workdir,optional"`
	ContinueOnError bool              `hcl:"continue_on_error,optional"`
	With            *withBlock        `hcl:"with,block"`
}

// withBlock carries the free-form arguments of an action step.
type withBlock struct {
	Body hcl.Body `hcl:",remain"`
}
