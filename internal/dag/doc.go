// Package dag provides the dependency graph the executor runs over: nodes
// keyed by job instance ID, edges derived from `needs`, cycle detection and
// the pending-dependency counters that gate readiness.
package dag
