package dag

import (
	"sync"
	"sync/atomic"
)

// NodeState tracks a node through its execution lifecycle.
type NodeState int

const (
	Pending NodeState = iota
	Ready
	Running
	Succeeded
	Failed
	Skipped
	Cancelled
)

// String returns the lower-case name of the state.
func (s NodeState) String() string {
	switch s {
	case Pending:
		return "pending"
	case Ready:
		return "ready"
	case Running:
		return "running"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	case Cancelled:
		return "cancelled"
	}
	return "unknown"
}

// Terminal reports whether no further transitions are possible.
func (s NodeState) Terminal() bool {
	switch s {
	case Succeeded, Failed, Skipped, Cancelled:
		return true
	}
	return false
}

// Node is a single vertex of the graph.
type Node struct {
	id         string
	deps       map[string]*Node
	dependents map[string]*Node

	pendingDeps atomic.Int32

	mu    sync.Mutex
	state NodeState
	err   error
}

// ID returns the node's unique identifier.
func (n *Node) ID() string { return n.id }

// State returns the node's current lifecycle state.
func (n *Node) State() NodeState {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

// Err returns the error recorded on a failed or skipped node.
func (n *Node) Err() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.err
}

// Transition atomically moves the node from one state to another. It returns
// false if the node is not currently in the `from` state, which makes it safe
// to race a skip cascade against normal completion.
func (n *Node) Transition(from, to NodeState) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.state != from {
		return false
	}
	n.state = to
	return true
}

// Fail records a terminal failure with its cause.
func (n *Node) Fail(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.state = Failed
	n.err = err
}

// SetErr records an error without changing state.
func (n *Node) SetErr(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.err = err
}

// DecrementDepCount atomically decrements the pending-dependency counter and
// returns the new value.
func (n *Node) DecrementDepCount() int32 {
	return n.pendingDeps.Add(-1)
}

// SetInitialCounters primes the pending-dependency counter from the graph's
// edge set. Must be called once, after all edges are in place.
func (n *Node) SetInitialCounters() {
	n.pendingDeps.Store(int32(len(n.deps)))
}
