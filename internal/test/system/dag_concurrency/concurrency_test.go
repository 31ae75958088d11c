package system

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridci/gridci/internal/testutil"
)

// Test for: a concurrency group expression is evaluated against the event
func TestDagConcurrency_GroupedRunExecutes(t *testing.T) {
	files := map[string]string{
		"ci.hcl": `
			workflow "unit" {
				on {
					push {
						branches = ["master"]
					}
				}

				concurrency {
					group              = "unit-${event.ref}"
					cancel_in_progress = true
				}

				job "tests" {
					step "work" {
						run = "echo grouped-run"
					}
				}
			}
		`,
	}

	result := testutil.RunIntegrationTest(t, files, testutil.Options{
		EventKind: "push",
		Ref:       "master",
	})
	require.NoError(t, result.Err, result.LogOutput)
	assert.Contains(t, result.LogOutput, "grouped-run")
}

// Test for: a fan-out/fan-in graph completes with bounded workers
func TestDagConcurrency_DiamondGraphCompletes(t *testing.T) {
	files := map[string]string{
		"ci.hcl": `
			workflow "unit" {
				on {
					manual {}
				}

				job "setup" {
					step "s" {
						run = "echo setup-done"
					}
				}

				job "left" {
					needs = ["setup"]
					step "s" {
						run = "echo left-done"
					}
				}

				job "right" {
					needs = ["setup"]
					step "s" {
						run = "echo right-done"
					}
				}

				job "join" {
					needs = ["left", "right"]
					step "s" {
						run = "echo join-done"
					}
				}
			}
		`,
	}

	result := testutil.RunIntegrationTest(t, files, testutil.Options{Workers: 2})
	require.NoError(t, result.Err, result.LogOutput)

	for _, marker := range []string{"setup-done", "left-done", "right-done", "join-done"} {
		assert.Contains(t, result.LogOutput, marker)
	}
}
