// Package hcl implements the HCL front end for workflow definitions. It
// discovers .hcl files, decodes `workflow` blocks into an intermediate
// schema, and translates that schema into the format-agnostic config model.
package hcl
