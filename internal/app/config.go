package app

import (
	"errors"
	"fmt"
)

// Commands understood by the application.
const (
	CmdValidate = "validate"
	CmdPlan     = "plan"
	CmdRun      = "run"
	CmdRuns     = "runs"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	Command      string
	WorkflowPath string // directory or file with workflow hcl
	Workflow     string // workflow name, optional when the path holds exactly one

	EventKind string
	Ref       string
	BaseRef   string

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
	StatusPort      int
	WorkerCount     int
	WorkDir         string // root for per-instance workspaces
	HistoryDB       string
	JSONOutput      bool
	RunsLimit       int
}

// NewConfig validates a parsed configuration.
func NewConfig(cfg Config) (*Config, error) {
	switch cfg.Command {
	case CmdValidate, CmdPlan, CmdRun, CmdRuns:
	default:
		return nil, fmt.Errorf("unknown command %q", cfg.Command)
	}

	if cfg.Command != CmdRuns && cfg.WorkflowPath == "" {
		return nil, errors.New("WorkflowPath is a required configuration field and cannot be empty")
	}
	if cfg.Command == CmdRuns && cfg.HistoryDB == "" {
		return nil, errors.New("the runs command requires a history database path")
	}
	if cfg.WorkerCount < 0 {
		return nil, errors.New("WorkerCount cannot be negative")
	}

	return &cfg, nil
}
