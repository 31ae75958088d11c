package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/gridci/gridci/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated app.Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("gridci", flag.ContinueOnError)
	flagSet.SetOutput(output)

	// Custom usage/help text function
	flagSet.Usage = func() {
		fmt.Fprint(output, `
GridCI - A declarative, matrix-first workflow runner.

Usage:
  gridci [options] COMMAND [WORKFLOW_PATH]

Commands:
  validate    Check workflow definitions against the action registry.
  plan        Show the job instances an event would produce.
  run         Execute the workflow for an event.
  runs        List recent runs from the history database.

Arguments:
  WORKFLOW_PATH
    Path to a single .hcl file or a directory containing .hcl files.

Options:
`)
		flagSet.PrintDefaults()
	}

	workflowFlag := flagSet.String("workflow", "", "Name of the workflow to target when the path holds several.")
	eventFlag := flagSet.String("event", "manual", "Triggering event kind. Options: 'push', 'pull_request', 'manual'.")
	refFlag := flagSet.String("ref", "", "Branch the event happened on (head branch for pull requests).")
	baseRefFlag := flagSet.String("base-ref", "", "Target branch of a pull request event.")
	workersFlag := flagSet.Int("workers", 4, "Number of concurrent workers for the executor.")
	workDirFlag := flagSet.String("work-dir", "", "Root directory for job workspaces. Empty uses a temp directory.")
	historyFlag := flagSet.String("history-db", "", "Path to the SQLite run history database. Empty disables history.")
	statusPortFlag := flagSet.Int("status-port", 0, "Port for the live status event server. 0 is disabled.")
	healthPortFlag := flagSet.Int("healthcheck-port", 0, "Port for the HTTP health check server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	jsonFlag := flagSet.Bool("json", false, "Render the plan as JSON instead of a table.")
	limitFlag := flagSet.Int("limit", 20, "Maximum number of runs the runs command lists.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	if flagSet.NArg() == 0 {
		slog.Debug("No command provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}
	command := strings.ToLower(flagSet.Arg(0))

	path := ""
	if flagSet.NArg() > 1 {
		path = flagSet.Arg(1)
	}
	slog.Debug("Workflow path determined.", "command", command, "path", path)

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		Command:         command,
		WorkflowPath:    path,
		Workflow:        *workflowFlag,
		EventKind:       *eventFlag,
		Ref:             *refFlag,
		BaseRef:         *baseRefFlag,
		WorkerCount:     *workersFlag,
		WorkDir:         *workDirFlag,
		HistoryDB:       *historyFlag,
		StatusPort:      *statusPortFlag,
		HealthcheckPort: *healthPortFlag,
		LogFormat:       logFormat,
		LogLevel:        logLevel,
		JSONOutput:      *jsonFlag,
		RunsLimit:       *limitFlag,
	})

	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
