// Package testutil provides a shared harness for integration tests: it
// writes workflow files to a temp directory, runs the app against them and
// captures the log output.
package testutil

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gridci/gridci/internal/app"
	"github.com/gridci/gridci/internal/hcl"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// WriteFile writes a fixture file under dir, creating parent directories.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// HarnessResult holds the outcomes of an integration test run.
type HarnessResult struct {
	LogOutput string
	Err       error
	App       *app.App
}

// Options tweaks the harness configuration per test.
type Options struct {
	Command   string // defaults to "run"
	Workflow  string
	EventKind string // defaults to "manual"
	Ref       string
	BaseRef   string
	HistoryDB string
	Workers   int // defaults to 4
}

// RunIntegrationTest writes the given workflow files to a temp directory and
// executes the app over them with a default background context.
func RunIntegrationTest(t *testing.T, files map[string]string, opts Options) *HarnessResult {
	t.Helper()
	return RunIntegrationTestWithContext(context.Background(), t, files, opts)
}

// RunIntegrationTestWithContext is RunIntegrationTest with a caller-provided
// context, for tests that exercise cancellation.
func RunIntegrationTestWithContext(ctx context.Context, t *testing.T, files map[string]string, opts Options) *HarnessResult {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", ".tmp-integration-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	workflowDir := filepath.Join(tmpDir, "workflows")
	require.NoError(t, os.Mkdir(workflowDir, 0o755))

	for name, content := range files {
		filePath := filepath.Join(workflowDir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(filePath), 0o755))
		require.NoError(t, os.WriteFile(filePath, []byte(content), 0o644))
	}

	command := opts.Command
	if command == "" {
		command = app.CmdRun
	}
	eventKind := opts.EventKind
	if eventKind == "" {
		eventKind = "manual"
	}
	workers := opts.Workers
	if workers == 0 {
		workers = 4
	}

	appConfig, err := app.NewConfig(app.Config{
		Command:      command,
		WorkflowPath: workflowDir,
		Workflow:     opts.Workflow,
		EventKind:    eventKind,
		Ref:          opts.Ref,
		BaseRef:      opts.BaseRef,
		WorkDir:      filepath.Join(tmpDir, "work"),
		HistoryDB:    opts.HistoryDB,
		LogLevel:     "debug",
		LogFormat:    "text",
		WorkerCount:  workers,
	})
	require.NoError(t, err)

	logBuffer := &SafeBuffer{}

	var testApp *app.App
	var panicErr any
	func() {
		defer func() {
			if r := recover(); r != nil {
				panicErr = r
			}
		}()
		testApp = app.NewApp(logBuffer, appConfig, hcl.NewLoader())
	}()

	if panicErr != nil {
		return &HarnessResult{
			LogOutput: logBuffer.String(),
			Err:       fmt.Errorf("application startup panicked | %v", panicErr),
		}
	}

	runErr := testApp.Run(ctx, appConfig)
	return &HarnessResult{
		LogOutput: logBuffer.String(),
		Err:       runErr,
		App:       testApp,
	}
}
