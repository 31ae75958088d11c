package executor

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gridci/gridci/internal/config"
	"github.com/gridci/gridci/internal/ctxlog"
	"github.com/gridci/gridci/internal/dag"
	"github.com/gridci/gridci/internal/plan"
	"github.com/gridci/gridci/internal/registry"
)

// Result is the terminal outcome of one job instance.
type Result struct {
	State    dag.NodeState
	Err      error
	Duration time.Duration
}

// Observer receives job lifecycle notifications during a run. Implementations
// must be safe for concurrent use; workers call them from multiple goroutines.
type Observer interface {
	JobStarted(ctx context.Context, jp *plan.JobPlan)
	JobFinished(ctx context.Context, jp *plan.JobPlan, res Result)
}

// Executor orchestrates the end-to-end execution of a plan's DAG. It manages
// concurrency, readiness, and fail-fast cancellation.
type Executor struct {
	graph       *dag.Graph
	plan        *plan.Plan
	workerCount int
	registry    *registry.Registry
	converter   config.Converter
	workRoot    string
	outW        io.Writer
	observers   []Observer

	wg sync.WaitGroup

	mu       sync.Mutex
	firstErr error
}

// New creates an executor for the given plan and its graph. workRoot is the
// directory job workspaces are created under; outW receives step output.
func New(graph *dag.Graph, p *plan.Plan, workerCount int, reg *registry.Registry, conv config.Converter, workRoot string, outW io.Writer, observers ...Observer) *Executor {
	if workerCount < 1 {
		workerCount = 1
	}
	return &Executor{
		graph:       graph,
		plan:        p,
		workerCount: workerCount,
		registry:    reg,
		converter:   conv,
		workRoot:    workRoot,
		outW:        outW,
		observers:   observers,
	}
}

// Run executes every node of the graph, respecting dependency order, and
// returns the first failure encountered. Cancellation of ctx stops the run;
// instances already running observe it through their own contexts.
func (e *Executor) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	nodes := e.graph.Nodes()
	if len(nodes) == 0 {
		logger.Warn("No job instances to execute.")
		return nil
	}

	readyChan := make(chan *dag.Node, len(nodes))
	e.wg.Add(len(nodes))

	for i := 0; i < e.workerCount; i++ {
		go e.worker(ctx, readyChan, cancel, i)
	}

	// Seed the queue with nodes that have no dependencies.
	for _, n := range nodes {
		if len(e.plan.Job(n.ID()).Needs) == 0 {
			if n.Transition(dag.Pending, dag.Ready) {
				readyChan <- n
			}
		}
	}

	e.wg.Wait()
	close(readyChan)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.firstErr != nil {
		return fmt.Errorf("run failed: %w", e.firstErr)
	}
	return nil
}

// recordError keeps the first failure for the run's return value.
func (e *Executor) recordError(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.firstErr == nil {
		e.firstErr = err
	}
}

// notifyObservers fans a lifecycle event out to every observer.
func (e *Executor) notifyStarted(ctx context.Context, jp *plan.JobPlan) {
	for _, o := range e.observers {
		o.JobStarted(ctx, jp)
	}
}

func (e *Executor) notifyFinished(ctx context.Context, jp *plan.JobPlan, res Result) {
	for _, o := range e.observers {
		o.JobFinished(ctx, jp, res)
	}
}
