// Package coverage provides the coverage_rewrite and coverage_upload actions.
// Rewrite makes a Cobertura report's file paths point at the checked-out
// source tree instead of the interpreter's site-packages directory; upload
// posts the rewritten report to an external coverage service.
package coverage

import (
	"context"
	"fmt"
	"path/filepath"
	"reflect"

	"github.com/zclconf/go-cty/cty"

	"github.com/gridci/gridci/internal/config"
	covreport "github.com/gridci/gridci/internal/coverage"
	"github.com/gridci/gridci/internal/ctxlog"
	"github.com/gridci/gridci/internal/executor"
	"github.com/gridci/gridci/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// RewriteInput defines the arguments for the coverage_rewrite action.
type RewriteInput struct {
	Report string `grid:"report"`
	From   string `grid:"from"`
	To     string `grid:"to"`
}

// RewriteOutput defines the data structure returned by coverage_rewrite.
type RewriteOutput struct {
	Report    string `json:"report"`
	Rewritten int    `json:"rewritten"`
}

// OnRunCoverageRewrite is the handler for the 'coverage_rewrite' action's
// on_run lifecycle event.
func OnRunCoverageRewrite(ctx context.Context, job *executor.JobContext, input *RewriteInput) (*RewriteOutput, error) {
	logger := ctxlog.FromContext(ctx).With("action", "coverage_rewrite")

	reportPath := input.Report
	if !filepath.IsAbs(reportPath) {
		reportPath = filepath.Join(job.Workspace, reportPath)
	}

	report, err := covreport.ParseFile(reportPath)
	if err != nil {
		return nil, fmt.Errorf("failed to parse coverage report: %w", err)
	}

	n := report.Rewrite(input.From, input.To)
	if err := report.WriteFile(reportPath); err != nil {
		return nil, fmt.Errorf("failed to write rewritten report: %w", err)
	}

	logger.Info("✍️ Rewrote coverage paths.", "report", reportPath, "count", n)
	fmt.Fprintf(job.Stdout, "rewrote %d coverage paths\n", n)
	return &RewriteOutput{Report: reportPath, Rewritten: n}, nil
}

// UploadInput defines the arguments for the coverage_upload action.
type UploadInput struct {
	Report string            `grid:"report"`
	URL    string            `grid:"url"`
	Token  string            `grid:"token"`
	Fields map[string]string `grid:"fields"`
}

// UploadOutput defines the data structure returned by coverage_upload.
type UploadOutput struct {
	Uploaded bool `json:"uploaded"`
}

// OnRunCoverageUpload is the handler for the 'coverage_upload' action's
// on_run lifecycle event.
func OnRunCoverageUpload(ctx context.Context, job *executor.JobContext, input *UploadInput) (*UploadOutput, error) {
	logger := ctxlog.FromContext(ctx).With("action", "coverage_upload")

	reportPath := input.Report
	if !filepath.IsAbs(reportPath) {
		reportPath = filepath.Join(job.Workspace, reportPath)
	}

	client := covreport.NewClient(nil)
	if err := client.Upload(ctx, input.URL, input.Token, reportPath, input.Fields); err != nil {
		return nil, fmt.Errorf("coverage upload failed: %w", err)
	}

	logger.Info("⬆️ Uploaded coverage report.", "report", reportPath, "url", input.URL)
	return &UploadOutput{Uploaded: true}, nil
}

// Register registers the handlers and manifests with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterAction("OnRunCoverageRewrite", &registry.RegisteredAction{
		NewInput:  func() any { return new(RewriteInput) },
		InputType: reflect.TypeOf(RewriteInput{}),
		Fn:        OnRunCoverageRewrite,
	})
	r.RegisterDefinition(&config.ActionDefinition{
		Type:        "coverage_rewrite",
		Description: "Rewrites source path prefixes inside a Cobertura coverage report.",
		Lifecycle:   &config.Lifecycle{OnRun: "OnRunCoverageRewrite"},
		Inputs: map[string]*config.InputDefinition{
			"report": {Name: "report", Type: cty.String},
			"from":   {Name: "from", Type: cty.String},
			"to":     {Name: "to", Type: cty.String},
		},
	})

	r.RegisterAction("OnRunCoverageUpload", &registry.RegisteredAction{
		NewInput:  func() any { return new(UploadInput) },
		InputType: reflect.TypeOf(UploadInput{}),
		Fn:        OnRunCoverageUpload,
	})
	r.RegisterDefinition(&config.ActionDefinition{
		Type:        "coverage_upload",
		Description: "Uploads a coverage report to an external service over HTTP.",
		Lifecycle:   &config.Lifecycle{OnRun: "OnRunCoverageUpload"},
		Inputs: map[string]*config.InputDefinition{
			"report": {Name: "report", Type: cty.String},
			"url":    {Name: "url", Type: cty.String},
			"token":  {Name: "token", Type: cty.String, Optional: true},
			"fields": {Name: "fields", Type: cty.Map(cty.String), Optional: true},
		},
	})
}
