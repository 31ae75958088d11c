// Package coverage handles the post-test coverage report: rewriting the
// source paths recorded by the test runner (which point into the installed
// package tree) back to the checked-out sources, and uploading the result to
// an external analysis service. It deliberately does not interpret coverage
// figures.
package coverage
