package executor

import (
	"context"
	"time"

	"github.com/gridci/gridci/internal/ctxlog"
	"github.com/gridci/gridci/internal/dag"
)

// worker is the core processing loop for a single concurrent worker.
func (e *Executor) worker(ctx context.Context, readyChan chan *dag.Node, cancel context.CancelFunc, workerID int) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Worker started.", "workerID", workerID)

	for n := range readyChan {
		workerLogger := logger.With("workerID", workerID, "instance", n.ID())

		if ctx.Err() != nil {
			if n.Transition(dag.Ready, dag.Cancelled) {
				n.SetErr(ctx.Err())
				e.notifyFinished(ctx, e.plan.Job(n.ID()), Result{State: dag.Cancelled, Err: ctx.Err()})
				e.wg.Done()
				e.notifyDependents(ctx, n, readyChan)
			}
			continue
		}

		if !n.Transition(dag.Ready, dag.Running) {
			continue // Already skipped by a cascade.
		}

		jp := e.plan.Job(n.ID())
		workerLogger.Debug("Worker picked up job instance.")
		e.notifyStarted(ctx, jp)

		start := time.Now()
		err := e.runJob(ctx, jp)
		dur := time.Since(start)

		if err != nil {
			workerLogger.Error("Job instance failed.", "error", err, "duration", dur)
			n.Fail(err)
			e.recordError(err)
			e.notifyFinished(ctx, jp, Result{State: dag.Failed, Err: err, Duration: dur})
			cancel()
			e.wg.Done()
			e.skipDependents(ctx, n)
			continue
		}

		workerLogger.Debug("Job instance succeeded.", "duration", dur)
		n.Transition(dag.Running, dag.Succeeded)
		e.notifyFinished(ctx, jp, Result{State: dag.Succeeded, Duration: dur})
		e.wg.Done()
		e.notifyDependents(ctx, n, readyChan)
	}
	logger.Debug("Worker finished.", "workerID", workerID)
}

// notifyDependents decrements each dependent's pending counter and enqueues
// the ones that became ready.
func (e *Executor) notifyDependents(ctx context.Context, n *dag.Node, readyChan chan *dag.Node) {
	logger := ctxlog.FromContext(ctx)
	dependents, err := e.graph.Dependents(n.ID())
	if err != nil {
		logger.Error("Failed to get dependents for completed node.", "instance", n.ID(), "error", err)
		return
	}
	for _, dependent := range dependents {
		if dependent.DecrementDepCount() == 0 {
			if dependent.Transition(dag.Pending, dag.Ready) {
				logger.Debug("Unlocking dependent instance.", "dependent", dependent.ID())
				readyChan <- dependent
			}
		}
	}
}

// skipDependents transitively marks every dependent of a failed node as
// skipped. Each node is accounted for exactly once: the Pending->Skipped
// transition fails for nodes another path already handled.
func (e *Executor) skipDependents(ctx context.Context, n *dag.Node) {
	logger := ctxlog.FromContext(ctx)
	dependents, err := e.graph.Dependents(n.ID())
	if err != nil {
		logger.Error("Failed to get dependents for failed node.", "instance", n.ID(), "error", err)
		return
	}
	for _, dependent := range dependents {
		if dependent.Transition(dag.Pending, dag.Skipped) {
			logger.Info("⏭️ Skipping instance: dependency failed.", "instance", dependent.ID(), "failed", n.ID())
			e.notifyFinished(ctx, e.plan.Job(dependent.ID()), Result{State: dag.Skipped})
			e.wg.Done()
			e.skipDependents(ctx, dependent)
		}
	}
}
