// Package checkout provides the source checkout action. Remote repositories
// are cloned with the git binary; local directories are copied into the
// workspace so test runs never mutate the source tree.
package checkout

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/zclconf/go-cty/cty"

	"github.com/gridci/gridci/internal/config"
	"github.com/gridci/gridci/internal/ctxlog"
	"github.com/gridci/gridci/internal/executor"
	"github.com/gridci/gridci/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the checkout action.
type Input struct {
	Repository string `grid:"repository"`
	Ref        string `grid:"ref"`
	Dest       string `grid:"dest"`
	Depth      int    `grid:"depth"`
}

// Output defines the data structure returned by the action.
type Output struct {
	Path string `json:"path"`
}

// OnRunCheckout is the handler for the 'checkout' action's on_run lifecycle event.
func OnRunCheckout(ctx context.Context, job *executor.JobContext, input *Input) (*Output, error) {
	logger := ctxlog.FromContext(ctx).With("action", "checkout")

	dest := filepath.Join(job.Workspace, input.Dest)
	if info, err := os.Stat(input.Repository); err == nil && info.IsDir() {
		logger.Debug("Copying local repository.", "source", input.Repository, "dest", dest)
		if err := copyTree(input.Repository, dest); err != nil {
			return nil, fmt.Errorf("failed to copy local repository: %w", err)
		}
		return &Output{Path: dest}, nil
	}

	args := []string{"clone", "--depth", fmt.Sprintf("%d", input.Depth)}
	if input.Ref != "" {
		args = append(args, "--branch", input.Ref)
	}
	args = append(args, input.Repository, dest)

	logger.Debug("Cloning repository.", "repository", input.Repository, "ref", input.Ref)
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Stdout = job.Stdout
	cmd.Stderr = job.Stdout
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git clone of '%s' failed: %w", input.Repository, err)
	}
	return &Output{Path: dest}, nil
}

// copyTree recursively copies a directory, skipping .git metadata.
func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel == ".git" || strings.HasPrefix(rel, ".git"+string(os.PathSeparator)) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		return copyFile(path, target, info.Mode())
	})
}

func copyFile(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// Register registers the handler and manifest with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterAction("OnRunCheckout", &registry.RegisteredAction{
		NewInput:  func() any { return new(Input) },
		InputType: reflect.TypeOf(Input{}),
		Fn:        OnRunCheckout,
	})

	destDefault := cty.StringVal("src")
	depthDefault := cty.NumberIntVal(1)
	r.RegisterDefinition(&config.ActionDefinition{
		Type:        "checkout",
		Description: "Checks out a repository (remote clone or local copy) into the job workspace.",
		Lifecycle:   &config.Lifecycle{OnRun: "OnRunCheckout"},
		Inputs: map[string]*config.InputDefinition{
			"repository": {Name: "repository", Type: cty.String},
			"ref":        {Name: "ref", Type: cty.String, Optional: true},
			"dest":       {Name: "dest", Type: cty.String, Default: &destDefault},
			"depth":      {Name: "depth", Type: cty.Number, Default: &depthDefault},
		},
	})
}
