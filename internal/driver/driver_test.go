package driver

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompileRejectsMalformedModule(t *testing.T) {
	s := NewSession(Options{})
	prog, err := s.Compile(bytes.NewReader([]byte("not a wasm module")))
	require.Error(t, err)
	require.Nil(t, prog)
	require.Len(t, s.Diagnostics, 1)
	require.Equal(t, KindInputValidation, s.Diagnostics[0].Kind)
}

func TestCompileRejectsEmptyModuleWithNoEntrypoint(t *testing.T) {
	// An empty but well-formed module (just the magic/version header, no
	// sections) decodes cleanly under wagon but yields no functions, so
	// the driver must fail to resolve an entrypoint rather than emit a
	// Program with a dangling Exec call.
	empty := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
	s := NewSession(Options{})
	prog, err := s.Compile(bytes.NewReader(empty))
	require.Error(t, err)
	require.Nil(t, prog)
	require.Empty(t, s.Diagnostics, "decoding succeeded, so no kind-1 diagnostic is expected")
}

func TestLoadConfigFillsUnsetOptionsOnly(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "midenc.yaml")
	require.NoError(t, os.WriteFile(path, []byte("heap_base_pages: 4\nentry_function: greet\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, uint32(4), cfg.HeapBasePages)
	require.Equal(t, "greet", cfg.EntryFunction)

	withFlag := Options{EntryFunction: "main"}.WithConfig(cfg)
	require.Equal(t, "main", withFlag.EntryFunction, "a CLI-set field must not be overwritten by the config file")
	require.Equal(t, uint32(4), withFlag.HeapBasePages, "an unset field is filled in from the config file")
}

func TestDiagnosticStringIncludesFunctionWhenPresent(t *testing.T) {
	d := Diagnostic{Kind: KindLowering, Function: "greet", Message: "unsupported cast"}
	require.Contains(t, d.String(), "greet")
	require.Contains(t, d.String(), "unsupported cast")

	withoutFn := Diagnostic{Kind: KindInputValidation, Message: "bad magic"}
	require.NotContains(t, withoutFn.String(), "()")
}
