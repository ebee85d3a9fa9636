package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/specialistvlad/opcompile/internal/cli"
	"github.com/specialistvlad/opcompile/internal/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	filePath := filepath.Join(t.TempDir(), "main.hcl")
	require.NoError(t, os.WriteFile(filePath, []byte(content), 0600), "failed to set up test file")
	return filePath
}

func TestRun_PanicRecovery(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	// A syntax error is guaranteed to cause a panic during the loading phase
	// inside app.NewApp().
	invalidHCL := `
		node "conv1" {
			type = "Conv2D"
		// Missing closing brace here
	`
	args := []string{writeFile(t, invalidHCL)}
	out := &bytes.Buffer{}

	// --- Act ---
	runErr := run(context.Background(), out, &bytes.Buffer{}, args)

	// --- Assert ---
	require.Error(t, runErr, "run() should have returned an error after recovering from a panic")

	errStr := runErr.Error()
	require.True(t, strings.Contains(errStr, "application startup panicked"), "The error message should indicate that a panic was recovered.")
	require.True(t, strings.Contains(errStr, "failed to parse"), "The error message should contain the underlying reason for the panic.")
	assert.Equal(t, cli.ExitFailure, cli.ExitCode(runErr))
}

func TestRun_ShouldExit(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	args := []string{"-h"}
	out := &bytes.Buffer{}

	// --- Act ---
	err := run(context.Background(), out, &bytes.Buffer{}, args)

	// --- Assert ---
	require.NoError(t, err, "run() should return a nil error when shouldExit is true")
	require.Contains(t, out.String(), "Usage:", "Expected help text to be printed to the output buffer")
}

func TestRun_ParseError(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	args := []string{"--this-is-not-a-valid-flag"}
	out := &bytes.Buffer{}

	// --- Act ---
	err := run(context.Background(), out, &bytes.Buffer{}, args)

	// --- Assert ---
	require.Error(t, err, "run() should return an error when argument parsing fails")
	require.Contains(t, err.Error(), "flag provided but not defined: -this-is-not-a-valid-flag")
	assert.Equal(t, cli.ExitUsage, cli.ExitCode(err))
}

func TestRun_TerminalFailureExitCode(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	plan := `
		backend "simulated" {
			fail_nodes = ["Add.a"]
		}

		node "a" {
			type = "Add"
		}

		node "b" {
			type = "Add"
		}
	`
	out, logs := &bytes.Buffer{}, &bytes.Buffer{}

	// --- Act ---
	err := run(context.Background(), out, logs, []string{"-log-level", "info", "-report", "-", writeFile(t, plan)})

	// --- Assert ---
	require.Error(t, err)
	assert.Equal(t, cli.ExitTerminal, cli.ExitCode(err))
	assert.Contains(t, out.String(), "failure_path: singleton_retry")
	assert.Contains(t, out.String(), "node: Add.b")
	assert.NotContains(t, out.String(), "Compilation finished", "logs must not reach the report stream")
	assert.Contains(t, logs.String(), "Compilation finished")

	var rep report.Report
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &rep), "report stream must be plain YAML")
	assert.False(t, rep.OK)
	assert.Len(t, rep.Nodes, 2)
}
