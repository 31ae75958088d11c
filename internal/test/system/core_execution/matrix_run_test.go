package system

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridci/gridci/internal/testutil"
)

// Test for: matrix expansion runs one instance per combination
func TestCoreExecution_MatrixExpansion_RunsEveryInstance(t *testing.T) {
	files := map[string]string{
		"ci.hcl": `
			workflow "unit" {
				on {
					manual {}
				}

				job "tests" {
					matrix {
						axis "python" {
							values = ["3.11", "3.12"]
						}
						axis "interface" {
							values = ["torch", "jax"]
						}
						exclude {
							python    = "3.12"
							interface = "jax"
						}
					}

					step "report" {
						run = "echo combo $GRIDCI_MATRIX_PYTHON/$GRIDCI_MATRIX_INTERFACE"
					}
				}
			}
		`,
	}

	result := testutil.RunIntegrationTest(t, files, testutil.Options{})
	require.NoError(t, result.Err, result.LogOutput)

	assert.Contains(t, result.LogOutput, "combo 3.11/torch")
	assert.Contains(t, result.LogOutput, "combo 3.11/jax")
	assert.Contains(t, result.LogOutput, "combo 3.12/torch")
	assert.NotContains(t, result.LogOutput, "combo 3.12/jax", "excluded combination must not run")
}

// Test for: needs ordering between expanded jobs
func TestCoreExecution_NeedsOrdering_DependentRunsAfterAllInstances(t *testing.T) {
	files := map[string]string{
		"ci.hcl": `
			workflow "unit" {
				on {
					manual {}
				}

				job "tests" {
					matrix {
						axis "python" {
							values = ["3.11", "3.12"]
						}
					}
					step "work" {
						run = "echo tests-done-$GRIDCI_MATRIX_PYTHON"
					}
				}

				job "report" {
					needs = ["tests"]
					step "summarize" {
						run = "echo report-ran"
					}
				}
			}
		`,
	}

	result := testutil.RunIntegrationTest(t, files, testutil.Options{})
	require.NoError(t, result.Err, result.LogOutput)

	out := result.LogOutput
	reportIdx := strings.Index(out, "report-ran")
	require.GreaterOrEqual(t, reportIdx, 0)
	assert.Greater(t, reportIdx, strings.Index(out, "tests-done-3.11"))
	assert.Greater(t, reportIdx, strings.Index(out, "tests-done-3.12"))
}

// Test for: step output lines carry the instance prefix
func TestCoreExecution_StepOutputCarriesInstancePrefix(t *testing.T) {
	files := map[string]string{
		"ci.hcl": `
			workflow "unit" {
				on {
					manual {}
				}
				job "solo" {
					step "hello" {
						run = "echo hello-there"
					}
				}
			}
		`,
	}

	result := testutil.RunIntegrationTest(t, files, testutil.Options{})
	require.NoError(t, result.Err, result.LogOutput)
	assert.Contains(t, result.LogOutput, "job.solo | hello-there")
}

// Test for: workflow and job env reach the shell with job env winning
func TestCoreExecution_EnvLayering(t *testing.T) {
	files := map[string]string{
		"ci.hcl": `
			workflow "unit" {
				env = {
					LAYER  = "workflow"
					SHARED = "from-workflow"
				}
				on {
					manual {}
				}
				job "solo" {
					env = {
						LAYER = "job"
					}
					step "show" {
						run = "echo layer=$LAYER shared=$SHARED wf=$GRIDCI_WORKFLOW"
					}
				}
			}
		`,
	}

	result := testutil.RunIntegrationTest(t, files, testutil.Options{})
	require.NoError(t, result.Err, result.LogOutput)
	assert.Contains(t, result.LogOutput, "layer=job shared=from-workflow wf=unit")
}

// Test for: non-matching trigger produces a no-op run
func TestCoreExecution_NonMatchingTriggerIsNoop(t *testing.T) {
	files := map[string]string{
		"ci.hcl": `
			workflow "unit" {
				on {
					push {
						branches = ["master"]
					}
				}
				job "tests" {
					step "work" {
						run = "echo should-not-run"
					}
				}
			}
		`,
	}

	result := testutil.RunIntegrationTest(t, files, testutil.Options{
		EventKind: "push",
		Ref:       "dev",
	})
	require.NoError(t, result.Err, result.LogOutput)
	assert.Contains(t, result.LogOutput, "Triggers did not match")
	assert.NotContains(t, result.LogOutput, "should-not-run")
}
