package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRun_PanicRecovery(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	// A log file inside a missing directory cannot be opened, which is a
	// startup panic inside app.NewApp().
	logFile := filepath.Join(t.TempDir(), "missing", "starmirror.log")
	args := []string{"run", "ws://127.0.0.1:1/ws", "--log-file", logFile}
	out := &bytes.Buffer{}

	// --- Act ---
	runErr := run(context.Background(), out, args)

	// --- Assert ---
	require.Error(t, runErr, "run() should have returned an error after recovering from a panic")

	errStr := runErr.Error()
	require.True(t, strings.Contains(errStr, "application startup panicked"), "The error message should indicate that a panic was recovered.")
	require.True(t, strings.Contains(errStr, "failed to open log file"), "The error message should contain the underlying reason for the panic.")
}

func TestRun_ShouldExit(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	// The "-h" (help) flag should cause cli.Parse to return `shouldExit=true`.
	args := []string{"-h"}
	out := &bytes.Buffer{}

	// --- Act ---
	err := run(context.Background(), out, args)

	// --- Assert ---
	require.NoError(t, err, "run() should return a nil error when shouldExit is true")
	require.Contains(t, out.String(), "Usage:", "Expected help text to be printed to the output buffer")
}

func TestRun_ParseError(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	// Providing an unknown flag will cause cli.Parse to return an error.
	args := []string{"run", "--this-is-not-a-valid-flag"}
	out := &bytes.Buffer{}

	// --- Act ---
	err := run(context.Background(), out, args)

	// --- Assert ---
	require.Error(t, err, "run() should return an error when argument parsing fails")
	require.Contains(t, err.Error(), "unknown flag: --this-is-not-a-valid-flag")
}

func TestRun_StopsWithContext(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	// Nothing listens on the device port; a cancelled context must still
	// end the run cleanly.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	args := []string{"run", "ws://127.0.0.1:1/ws", "--state-dir", t.TempDir(), "--snapshot"}
	out := &bytes.Buffer{}

	// --- Act ---
	err := run(ctx, out, args)

	// --- Assert ---
	require.NoError(t, err)
	require.Contains(t, out.String(), "instanceName")
}
