package status

import (
	"context"

	"github.com/gridci/gridci/internal/executor"
	"github.com/gridci/gridci/internal/plan"
)

// Event names pushed to connected clients.
const (
	EventRunStarted  = "run:started"
	EventRunFinished = "run:finished"
	EventJobStarted  = "job:started"
	EventJobFinished = "job:finished"
)

// Reporter adapts the status server to the executor's Observer interface.
type Reporter struct {
	server *Server
	runID  string
}

// NewReporter creates an observer that broadcasts job lifecycle events for
// one run.
func NewReporter(server *Server, runID string) *Reporter {
	return &Reporter{server: server, runID: runID}
}

// RunStarted announces the beginning of a run.
func (r *Reporter) RunStarted(workflow string, instances int) {
	r.server.Broadcast(EventRunStarted, map[string]any{
		"run":       r.runID,
		"workflow":  workflow,
		"instances": instances,
	})
}

// RunFinished announces the run's terminal status.
func (r *Reporter) RunFinished(workflow, status string) {
	r.server.Broadcast(EventRunFinished, map[string]any{
		"run":      r.runID,
		"workflow": workflow,
		"status":   status,
	})
}

// JobStarted implements executor.Observer.
func (r *Reporter) JobStarted(ctx context.Context, jp *plan.JobPlan) {
	r.server.Broadcast(EventJobStarted, map[string]any{
		"run":      r.runID,
		"instance": jp.ID,
		"job":      jp.JobName,
		"matrix":   jp.Combo.Values(),
	})
}

// JobFinished implements executor.Observer.
func (r *Reporter) JobFinished(ctx context.Context, jp *plan.JobPlan, res executor.Result) {
	payload := map[string]any{
		"run":         r.runID,
		"instance":    jp.ID,
		"job":         jp.JobName,
		"status":      res.State.String(),
		"duration_ms": res.Duration.Milliseconds(),
	}
	if res.Err != nil {
		payload["error"] = res.Err.Error()
	}
	r.server.Broadcast(EventJobFinished, payload)
}
