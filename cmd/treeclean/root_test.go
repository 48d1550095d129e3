package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"treeclean/internal/exitcodes"
)

func run(t *testing.T, args ...string) (string, string, int) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := exitcodes.Success
	cmd := newRootCmd(&stdout, &stderr, &code)
	cmd.SetArgs(args)
	cmd.SetOut(&stderr)
	cmd.SetErr(&stderr)
	if err := cmd.Execute(); err != nil && code == exitcodes.Success {
		code = exitcodes.InvalidConfig
	}
	return stdout.String(), stderr.String(), code
}

func makeTree(t *testing.T, files ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, f := range files {
		p := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	}
	return root
}

func TestRootCmd_CleansCurrentDirectory(t *testing.T) {
	root := makeTree(t, "a/b.pyc", "a/.git/c.pyc", "examples/reports/x.txt", "notes.txt")
	t.Chdir(root)

	stdout, _, code := run(t)
	assert.Equal(t, exitcodes.Success, code)
	assert.Equal(t, "a/b.pyc\nexamples/reports/x.txt\nexamples/reports\n", stdout)

	_, err := os.Stat(filepath.Join(root, "a", ".git", "c.pyc"))
	assert.NoError(t, err)

	stdout, _, code = run(t)
	assert.Equal(t, exitcodes.Success, code)
	assert.Empty(t, stdout)
}

func TestRootCmd_DryRun(t *testing.T) {
	root := makeTree(t, "x.backup")

	stdout, stderr, code := run(t, "--root", root, "--dry-run")
	assert.Equal(t, exitcodes.Success, code)
	assert.Equal(t, filepath.Join(root, "x.backup")+"\n", stdout)
	assert.Contains(t, stderr, "DRY RUN")

	_, err := os.Stat(filepath.Join(root, "x.backup"))
	assert.NoError(t, err)
}

func TestRootCmd_ConfigFile(t *testing.T) {
	root := makeTree(t, "build/out.o", "keep.pyc")
	cfgPath := filepath.Join(t.TempDir(), "treeclean.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
root: `+root+`
rules:
  include:
    - kind: suffix
      pattern: .o
  exclude:
    - kind: name
      pattern: keep.pyc
`), 0o644))

	stdout, _, code := run(t, "--config", cfgPath, "--quiet")
	assert.Equal(t, exitcodes.Success, code)
	assert.Equal(t, filepath.Join(root, "build", "out.o")+"\n", stdout)
}

func TestRootCmd_Errors(t *testing.T) {
	t.Run("positional args rejected", func(t *testing.T) {
		_, _, code := run(t, "somewhere")
		assert.Equal(t, exitcodes.InvalidConfig, code)
	})

	t.Run("missing config", func(t *testing.T) {
		_, _, code := run(t, "--config", filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Equal(t, exitcodes.InvalidConfig, code)
	})

	t.Run("missing root", func(t *testing.T) {
		_, _, code := run(t, "--root", filepath.Join(t.TempDir(), "nope"))
		assert.Equal(t, exitcodes.InvalidConfig, code)
	})

	t.Run("delete failure", func(t *testing.T) {
		if os.Geteuid() == 0 {
			t.Skip("permission bits are not enforced for root")
		}
		root := makeTree(t, "locked/a.pyc")
		locked := filepath.Join(root, "locked")
		require.NoError(t, os.Chmod(locked, 0o555))
		t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

		stdout, stderr, code := run(t, "--root", root)
		assert.Equal(t, exitcodes.RuntimeError, code)
		assert.Empty(t, stdout)
		assert.True(t, strings.Contains(stderr, "a.pyc"), stderr)
	})
}
