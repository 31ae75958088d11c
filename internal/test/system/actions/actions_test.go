package system

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridci/gridci/internal/testutil"
)

// Test for: print action renders its message and values
func TestActions_Print(t *testing.T) {
	files := map[string]string{
		"ci.hcl": `
			workflow "unit" {
				on {
					manual {}
				}

				job "tests" {
					matrix {
						axis "python" {
							values = ["3.11"]
						}
					}
					step "show" {
						action = "print"
						with {
							message = "hello-from-print"
							values = {
								python = matrix.python
							}
						}
					}
				}
			}
		`,
	}

	result := testutil.RunIntegrationTest(t, files, testutil.Options{})
	require.NoError(t, result.Err, result.LogOutput)
	assert.Contains(t, result.LogOutput, "hello-from-print")
	assert.Contains(t, result.LogOutput, "python = 3.11")
}

// Test for: shell action runs in the workspace with extra env
func TestActions_Shell(t *testing.T) {
	files := map[string]string{
		"ci.hcl": `
			workflow "unit" {
				on {
					manual {}
				}

				job "tests" {
					step "make-dir" {
						run = "mkdir -p sub"
					}
					step "inner" {
						action = "shell"
						with {
							command = "echo in-$EXTRA-$(basename $PWD)"
							workdir = "sub"
							env = {
								EXTRA = "here"
							}
						}
					}
				}
			}
		`,
	}

	result := testutil.RunIntegrationTest(t, files, testutil.Options{})
	require.NoError(t, result.Err, result.LogOutput)
	assert.Contains(t, result.LogOutput, "in-here-sub")
}

// Test for: coverage_rewrite repoints report paths and exposes the count
func TestActions_CoverageRewrite(t *testing.T) {
	files := map[string]string{
		"ci.hcl": `
			workflow "unit" {
				on {
					manual {}
				}

				job "coverage" {
					step "seed" {
						run = "echo '<coverage><sources><source>/site-packages/pennylane</source></sources></coverage>' > coverage.xml"
					}

					step "rewrite" {
						action = "coverage_rewrite"
						with {
							report = "coverage.xml"
							from   = "/site-packages/pennylane"
							to     = "pennylane"
						}
					}

					step "verify" {
						if  = "steps.rewrite.output.rewritten == 1"
						run = "cat coverage.xml"
					}
				}
			}
		`,
	}

	result := testutil.RunIntegrationTest(t, files, testutil.Options{})
	require.NoError(t, result.Err, result.LogOutput)
	assert.Contains(t, result.LogOutput, "rewrote 1 coverage paths")
	assert.Contains(t, result.LogOutput, ">pennylane</source>")
	assert.NotContains(t, result.LogOutput, ">/site-packages/pennylane</source>")
}

// Test for: checkout copies a local repository into the workspace
func TestActions_CheckoutLocalCopy(t *testing.T) {
	src := t.TempDir()
	testutil.WriteFile(t, src, "README.md", "local checkout fixture\n")
	testutil.WriteFile(t, src, ".git/config", "should not be copied\n")

	files := map[string]string{
		"ci.hcl": `
			workflow "unit" {
				on {
					manual {}
				}

				job "tests" {
					step "fetch" {
						action = "checkout"
						with {
							repository = "` + src + `"
						}
					}
					step "inspect" {
						run = "cat src/README.md && test ! -e src/.git && echo git-dir-absent"
					}
				}
			}
		`,
	}

	result := testutil.RunIntegrationTest(t, files, testutil.Options{})
	require.NoError(t, result.Err, result.LogOutput)
	assert.Contains(t, result.LogOutput, "local checkout fixture")
	assert.Contains(t, result.LogOutput, "git-dir-absent")
}

// Test for: unknown action types are rejected before execution
func TestActions_UnknownActionFailsValidation(t *testing.T) {
	files := map[string]string{
		"ci.hcl": `
			workflow "unit" {
				on {
					manual {}
				}
				job "tests" {
					step "warp" {
						action = "teleport"
					}
				}
			}
		`,
	}

	result := testutil.RunIntegrationTest(t, files, testutil.Options{})
	require.Error(t, result.Err)
	assert.Contains(t, result.Err.Error(), `unknown action type "teleport"`)
}
