// Package registry holds the built-in step actions: the Go handlers steps
// dispatch to, and the manifests describing their input contracts. Handler
// and manifest are validated against each other at startup so that a drift
// between the two is a startup error, not a runtime surprise.
package registry
