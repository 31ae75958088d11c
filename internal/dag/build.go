package dag

import (
	"context"
	"fmt"

	"github.com/gridci/gridci/internal/ctxlog"
)

// Build constructs a complete, validated dependency graph from an edge set:
// each key is a node ID, its value the IDs it depends on.
func Build(ctx context.Context, edges map[string][]string) (*Graph, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Build: Starting graph construction.")

	graph := New()

	// First pass: create all nodes.
	for id := range edges {
		graph.AddNode(id)
	}
	logger.Debug("Build: Node creation complete.", "node_count", graph.Len())

	// Second pass: link dependencies.
	for id, deps := range edges {
		for _, dep := range deps {
			if err := graph.AddEdge(dep, id); err != nil {
				return nil, err
			}
		}
	}
	logger.Debug("Build: Node linking complete.")

	// Third pass: initialize counters.
	for _, node := range graph.Nodes() {
		node.SetInitialCounters()
	}
	logger.Debug("Build: Counter initialization complete.")

	if err := graph.DetectCycles(); err != nil {
		return nil, fmt.Errorf("error validating dependency graph: %w", err)
	}
	logger.Debug("Build: Cycle detection passed.")

	return graph, nil
}
