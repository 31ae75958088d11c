package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"

	"github.com/gridci/gridci/internal/config"
	"github.com/gridci/gridci/internal/ctxlog"
	"github.com/gridci/gridci/internal/dag"
	"github.com/gridci/gridci/internal/event"
	"github.com/gridci/gridci/internal/executor"
	"github.com/gridci/gridci/internal/history"
	"github.com/gridci/gridci/internal/plan"
	"github.com/gridci/gridci/internal/status"
)

// Run executes the configured command.
func (a *App) Run(ctx context.Context, appConfig *Config) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.", "command", appConfig.Command)

	if appConfig.HealthcheckPort > 0 {
		a.startHealthcheckServer(ctx, appConfig.HealthcheckPort)
	}

	switch appConfig.Command {
	case CmdValidate:
		return a.validate(ctx)
	case CmdPlan:
		return a.plan(ctx, appConfig)
	case CmdRun:
		return a.run(ctx, appConfig)
	case CmdRuns:
		return a.listRuns(ctx, appConfig)
	}
	return fmt.Errorf("unknown command %q", appConfig.Command)
}

// validate checks every loaded workflow against the registry.
func (a *App) validate(ctx context.Context) error {
	var failed bool
	for _, wf := range a.model.Workflows {
		if err := plan.Validate(ctx, wf, a.registry); err != nil {
			a.logger.Error("Workflow is invalid.", "workflow", wf.Name, "error", err)
			failed = true
			continue
		}
		a.logger.Info("✅ Workflow is valid.", "workflow", wf.Name)
	}
	if failed {
		return fmt.Errorf("validation failed")
	}
	return nil
}

// plan builds the execution plan for the configured event and renders it.
func (a *App) plan(ctx context.Context, appConfig *Config) error {
	wf, ev, err := a.resolve(appConfig)
	if err != nil {
		return err
	}
	if err := plan.Validate(ctx, wf, a.registry); err != nil {
		return err
	}

	p, err := plan.Build(ctx, wf, ev)
	if err != nil {
		return fmt.Errorf("failed to build plan: %w", err)
	}
	if appConfig.JSONOutput {
		return p.WriteJSON(a.outW)
	}
	return p.WriteText(a.outW)
}

// run builds the plan, acquires the concurrency slot and executes the DAG.
func (a *App) run(ctx context.Context, appConfig *Config) error {
	wf, ev, err := a.resolve(appConfig)
	if err != nil {
		return err
	}
	if err := plan.Validate(ctx, wf, a.registry); err != nil {
		return err
	}

	p, err := plan.Build(ctx, wf, ev)
	if err != nil {
		return fmt.Errorf("failed to build plan: %w", err)
	}
	if !p.Fired {
		a.logger.Info("Triggers did not match, nothing to run.",
			"workflow", wf.Name, "event", string(ev.Kind), "ref", ev.Ref)
		return nil
	}
	if len(p.Jobs) == 0 {
		a.logger.Warn("Plan contains no job instances, execution not required.", "workflow", wf.Name)
		return nil
	}

	group, cancelInProgress, err := concurrencySettings(wf, ev)
	if err != nil {
		return err
	}
	runCtx, release, err := a.runs.Acquire(ctx, group, cancelInProgress)
	if err != nil {
		return fmt.Errorf("failed to acquire concurrency slot: %w", err)
	}
	defer release()

	graph, err := dag.Build(runCtx, p.Edges())
	if err != nil {
		return fmt.Errorf("failed to build dependency graph: %w", err)
	}
	a.logger.Debug("Dependency graph built.", "node_count", graph.Len())

	runID := newRunID()
	var observers []executor.Observer

	var store *history.Store
	if appConfig.HistoryDB != "" {
		store, err = history.Open(appConfig.HistoryDB)
		if err != nil {
			return fmt.Errorf("failed to open history database: %w", err)
		}
		defer store.Close()

		rec := history.RunRecord{
			ID:        runID,
			Workflow:  wf.Name,
			Group:     group,
			EventKind: string(ev.Kind),
			Ref:       ev.Ref,
			Status:    "running",
			StartedAt: time.Now().UTC(),
		}
		if err := store.WriteRunStarted(runCtx, rec); err != nil {
			return fmt.Errorf("failed to record run start: %w", err)
		}
		observers = append(observers, &historyObserver{store: store, runID: runID})
	}

	var reporter *status.Reporter
	if appConfig.StatusPort > 0 {
		server, err := status.NewServer(runCtx, appConfig.StatusPort)
		if err != nil {
			return fmt.Errorf("failed to start status server: %w", err)
		}
		defer server.Close()
		reporter = status.NewReporter(server, runID)
		reporter.RunStarted(wf.Name, len(p.Jobs))
		observers = append(observers, reporter)
	}

	workRoot := appConfig.WorkDir
	if workRoot == "" {
		workRoot, err = os.MkdirTemp("", "gridci-*")
		if err != nil {
			return fmt.Errorf("failed to create work directory: %w", err)
		}
	}

	a.logger.Info("🚀 Starting concurrent execution...",
		"run_id", runID, "workflow", wf.Name, "instances", len(p.Jobs))
	exec := executor.New(graph, p, appConfig.WorkerCount, a.registry, a.converter, workRoot, a.outW, observers...)
	runErr := exec.Run(runCtx)

	finalStatus := "succeeded"
	if runErr != nil {
		finalStatus = "failed"
	}
	if store != nil {
		// Best effort even when the run context was cancelled.
		if err := store.WriteRunFinished(context.WithoutCancel(runCtx), runID, finalStatus, time.Now().UTC()); err != nil {
			a.logger.Warn("Failed to record run finish.", "error", err)
		}
	}
	if reporter != nil {
		reporter.RunFinished(wf.Name, finalStatus)
	}

	if runErr != nil {
		return fmt.Errorf("execution failed: %w", runErr)
	}
	a.logger.Info("🏁 Execution finished.", "run_id", runID)
	return nil
}

// listRuns prints recent run history.
func (a *App) listRuns(ctx context.Context, appConfig *Config) error {
	store, err := history.Open(appConfig.HistoryDB)
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer store.Close()

	limit := appConfig.RunsLimit
	if limit <= 0 {
		limit = 20
	}
	runs, err := store.ListRuns(ctx, limit)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.outW, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tWORKFLOW\tEVENT\tREF\tSTATUS\tSTARTED")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Workflow, r.EventKind, r.Ref, r.Status, r.StartedAt.Format(time.RFC3339))
	}
	return tw.Flush()
}

// resolve picks the target workflow and parses the triggering event.
func (a *App) resolve(appConfig *Config) (*config.Workflow, event.Event, error) {
	var wf *config.Workflow
	if appConfig.Workflow != "" {
		wf = a.model.Workflows[appConfig.Workflow]
		if wf == nil {
			return nil, event.Event{}, fmt.Errorf("workflow '%s' not found under %s", appConfig.Workflow, appConfig.WorkflowPath)
		}
	} else {
		if len(a.model.Workflows) != 1 {
			return nil, event.Event{}, fmt.Errorf("found %d workflows, select one with -workflow", len(a.model.Workflows))
		}
		for _, w := range a.model.Workflows {
			wf = w
		}
	}

	kind, err := event.ParseKind(appConfig.EventKind)
	if err != nil {
		return nil, event.Event{}, err
	}
	ev := event.Event{Kind: kind, Ref: appConfig.Ref, BaseRef: appConfig.BaseRef}
	return wf, ev, nil
}

// concurrencySettings evaluates the workflow's concurrency group expression
// against the triggering event.
func concurrencySettings(wf *config.Workflow, ev event.Event) (string, bool, error) {
	if wf.Concurrency == nil {
		return "", false, nil
	}
	evalCtx := &hcl.EvalContext{Variables: map[string]cty.Value{
		"event":    ev.CtyObject(),
		"workflow": cty.ObjectVal(map[string]cty.Value{"name": cty.StringVal(wf.Name)}),
	}}
	val, diags := wf.Concurrency.Group.Value(evalCtx)
	if diags.HasErrors() {
		return "", false, fmt.Errorf("invalid concurrency group expression: %w", diags)
	}
	strVal, err := convert.Convert(val, cty.String)
	if err != nil || strVal.IsNull() {
		return "", false, fmt.Errorf("concurrency group expression must produce a string")
	}
	return strVal.AsString(), wf.Concurrency.CancelInProgress, nil
}

// newRunID generates a short unique run identifier.
func newRunID() string {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("run-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}

// historyObserver persists job instance outcomes as they finish.
type historyObserver struct {
	store *history.Store
	runID string
}

func (h *historyObserver) JobStarted(ctx context.Context, jp *plan.JobPlan) {
	rec := history.JobRecord{
		RunID:      h.runID,
		InstanceID: jp.ID,
		JobName:    jp.JobName,
		MatrixKey:  jp.Combo.Key(),
		Status:     "running",
	}
	if err := h.store.WriteJob(context.WithoutCancel(ctx), rec); err != nil {
		ctxlog.FromContext(ctx).Warn("Failed to record job start.", "instance", jp.ID, "error", err)
	}
}

func (h *historyObserver) JobFinished(ctx context.Context, jp *plan.JobPlan, res executor.Result) {
	rec := history.JobRecord{
		RunID:      h.runID,
		InstanceID: jp.ID,
		JobName:    jp.JobName,
		MatrixKey:  jp.Combo.Key(),
		Status:     res.State.String(),
		Duration:   res.Duration,
	}
	if res.Err != nil {
		rec.Error = res.Err.Error()
	}
	if err := h.store.WriteJob(context.WithoutCancel(ctx), rec); err != nil {
		ctxlog.FromContext(ctx).Warn("Failed to record job finish.", "instance", jp.ID, "error", err)
	}
}
