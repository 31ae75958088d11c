// Package event models the external occurrences that cause a workflow to
// fire: a push to a branch, a pull request, or a manual dispatch.
package event

import (
	"fmt"
	"strings"

	"github.com/zclconf/go-cty/cty"

	"github.com/gridci/gridci/internal/config"
)

// Kind enumerates the supported event kinds.
type Kind string

const (
	Push        Kind = "push"
	PullRequest Kind = "pull_request"
	Manual      Kind = "manual"
)

// ParseKind validates an event kind given on the command line.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(s)) {
	case Push:
		return Push, nil
	case PullRequest:
		return PullRequest, nil
	case Manual:
		return Manual, nil
	}
	return "", fmt.Errorf("unknown event kind %q (expected push, pull_request or manual)", s)
}

// Event is a single occurrence a workflow may be triggered by.
type Event struct {
	Kind Kind
	// Ref is the branch the event happened on. For pull requests it is the
	// head branch; BaseRef carries the target branch.
	Ref     string
	BaseRef string
}

// Matches reports whether the workflow's declared triggers fire for this event.
func (e Event) Matches(t config.Triggers) bool {
	switch e.Kind {
	case Push:
		return t.Push != nil && branchMatches(t.Push.Branches, e.Ref)
	case PullRequest:
		// Pull request filters apply to the target branch.
		return t.PullRequest != nil && branchMatches(t.PullRequest.Branches, e.BaseRef)
	case Manual:
		return t.Manual
	}
	return false
}

// CtyObject renders the event for HCL evaluation contexts (`event.*`).
func (e Event) CtyObject() cty.Value {
	return cty.ObjectVal(map[string]cty.Value{
		"kind":     cty.StringVal(string(e.Kind)),
		"ref":      cty.StringVal(e.Ref),
		"base_ref": cty.StringVal(e.BaseRef),
	})
}

// branchMatches reports whether the branch matches any of the patterns.
// An empty pattern list matches every branch.
func branchMatches(patterns []string, branch string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, p := range patterns {
		if matchPattern(p, branch) {
			return true
		}
	}
	return false
}
