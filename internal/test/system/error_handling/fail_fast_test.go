package system

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridci/gridci/internal/testutil"
)

// Test for: step fail triggers fast fail across the job graph
func TestErrorHandling_FailingJob_SkipsDependents(t *testing.T) {
	files := map[string]string{
		"ci.hcl": `
			workflow "unit" {
				on {
					manual {}
				}

				job "build" {
					step "break" {
						run = "echo about-to-fail && exit 1"
					}
				}

				job "publish" {
					needs = ["build"]
					step "ship" {
						run = "echo published"
					}
				}
			}
		`,
	}

	result := testutil.RunIntegrationTest(t, files, testutil.Options{})

	require.Error(t, result.Err)
	assert.Contains(t, result.LogOutput, "about-to-fail")
	assert.Contains(t, result.LogOutput, "⏭️", "dependent must be skipped, not run")
	assert.NotContains(t, result.LogOutput, "published")
}

// Test for: sibling matrix instances are cancelled after the first failure
func TestErrorHandling_FailFastStopsUnstartedSiblings(t *testing.T) {
	files := map[string]string{
		"ci.hcl": `
			workflow "unit" {
				on {
					manual {}
				}

				job "tests" {
					matrix {
						axis "n" {
							values = ["1", "2", "3", "4", "5", "6"]
						}
					}
					step "work" {
						run = "if [ \"$GRIDCI_MATRIX_N\" = \"1\" ]; then exit 1; fi; sleep 2; echo slow-sibling-$GRIDCI_MATRIX_N"
					}
				}
			}
		`,
	}

	// A single worker guarantees the failing instance runs first and the
	// rest are still pending when the run is cancelled.
	result := testutil.RunIntegrationTest(t, files, testutil.Options{Workers: 1})

	require.Error(t, result.Err)
	assert.NotContains(t, result.LogOutput, "slow-sibling-6")
}

// Test for: continue_on_error downgrades a step failure
func TestErrorHandling_ContinueOnError_JobStillSucceeds(t *testing.T) {
	files := map[string]string{
		"ci.hcl": `
			workflow "unit" {
				on {
					manual {}
				}

				job "tests" {
					step "flaky" {
						run               = "exit 1"
						continue_on_error = true
					}
					step "after" {
						run = "echo still-here"
					}
				}
			}
		`,
	}

	result := testutil.RunIntegrationTest(t, files, testutil.Options{})
	require.NoError(t, result.Err, result.LogOutput)
	assert.Contains(t, result.LogOutput, "still-here")
	assert.Contains(t, result.LogOutput, "continue_on_error")
}

// Test for: invalid workflow fails validation before anything runs
func TestErrorHandling_InvalidWorkflowFailsValidation(t *testing.T) {
	files := map[string]string{
		"ci.hcl": `
			workflow "unit" {
				on {
					manual {}
				}

				job "tests" {
					needs = ["ghost"]
					step "work" {
						run = "echo never"
					}
				}
			}
		`,
	}

	result := testutil.RunIntegrationTest(t, files, testutil.Options{})
	require.Error(t, result.Err)
	assert.Contains(t, result.Err.Error(), `unknown job "ghost"`)
	assert.NotContains(t, result.LogOutput, "never")
}
