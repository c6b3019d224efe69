package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompileCommandRejectsMissingFile(t *testing.T) {
	cmd := newRootCmd()
	var stderr bytes.Buffer
	cmd.SetErr(&stderr)
	cmd.SetArgs([]string{"compile", filepath.Join(t.TempDir(), "missing.wasm")})

	err := cmd.Execute()
	require.Error(t, err)
}

func TestCompileCommandSurfacesDiagnosticsForMalformedInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.wasm")
	require.NoError(t, os.WriteFile(path, []byte("not wasm"), 0o644))

	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs([]string{"compile", path})

	err := cmd.Execute()
	require.Error(t, err)
	require.Contains(t, stderr.String(), "input-validation")
	require.Empty(t, stdout.String())
}

func TestCompileCommandRequiresExactlyOneArgument(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"compile"})
	err := cmd.Execute()
	require.Error(t, err)
}
