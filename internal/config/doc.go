// Package config defines the format-agnostic model of a workflow definition
// and the interfaces a configuration front end must implement to produce it.
//
// The model deliberately keeps step arguments and conditions as unevaluated
// expressions: evaluation context (matrix values, event data, prior step
// outputs) only exists once a concrete job instance is running.
package config
