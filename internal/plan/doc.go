// Package plan turns a workflow plus a triggering event into the concrete
// set of job instances a run will execute: trigger matching, matrix
// expansion, needs resolution, and the validation pass that guarantees each
// declared matrix combination yields a well-formed job configuration.
package plan
