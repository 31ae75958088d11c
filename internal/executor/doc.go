// Package executor runs an expanded plan over its dependency graph with a
// bounded worker pool. Matrix instances with no ordering relation run
// concurrently; a failed instance cancels the run and its transitive
// dependents are skipped.
package executor
