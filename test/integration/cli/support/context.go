// Package support holds the godog step definitions for the pagescan
// command line and HTTP API.
package support

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// TestContext holds the state of one scenario.
type TestContext struct {
	// Command execution state
	LastCommand  string
	LastOutput   string
	LastError    error
	LastExitCode int

	// Test environment
	TempDir    string
	origDir    string
	restoreEnv []func()

	// HTTP state
	HTTPTestServer     *HTTPTestServerWrapper
	LastHTTPStatusCode int
	LastHTTPResponse   string
	LastHTTPHeaders    map[string]string
}

// NewTestContext creates a scenario workspace and switches into it. User and
// system configuration files are hidden from the commands under test.
func NewTestContext() (*TestContext, error) {
	origDir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	tempDir, err := os.MkdirTemp("", "pagescan-test-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	testCtx := &TestContext{TempDir: tempDir, origDir: origDir}
	if err := os.Chdir(tempDir); err != nil {
		_ = os.RemoveAll(tempDir)
		return nil, fmt.Errorf("failed to enter temp directory: %w", err)
	}
	testCtx.setEnv("XDG_CONFIG_HOME", filepath.Join(tempDir, ".config"))
	return testCtx, nil
}

// setEnv sets an environment variable until Cleanup.
func (testCtx *TestContext) setEnv(name, value string) {
	prev, had := os.LookupEnv(name)
	_ = os.Setenv(name, value)
	testCtx.restoreEnv = append(testCtx.restoreEnv, func() {
		if had {
			_ = os.Setenv(name, prev)
		} else {
			_ = os.Unsetenv(name)
		}
	})
}

// Cleanup stops the server, restores the environment and removes the workspace.
func (testCtx *TestContext) Cleanup() error {
	var errs []error
	testCtx.stopTestHTTPServer()
	for i := len(testCtx.restoreEnv) - 1; i >= 0; i-- {
		testCtx.restoreEnv[i]()
	}
	if err := os.Chdir(testCtx.origDir); err != nil {
		errs = append(errs, fmt.Errorf("failed to restore working directory: %w", err))
	}
	if err := os.RemoveAll(testCtx.TempDir); err != nil {
		errs = append(errs, fmt.Errorf("failed to remove temp directory %s: %w", testCtx.TempDir, err))
	}
	return errors.Join(errs...)
}

// path resolves name inside the scenario workspace.
func (testCtx *TestContext) path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(testCtx.TempDir, name)
}
