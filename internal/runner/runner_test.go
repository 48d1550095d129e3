package runner

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"treeclean/internal/cleanup"
	"treeclean/internal/config"
	"treeclean/internal/database"
	"treeclean/internal/exitcodes"
	"treeclean/internal/fsops"
	"treeclean/internal/logging"
	"treeclean/internal/safety"
)

func quietLogger(stderr *bytes.Buffer) *logging.Logger {
	return logging.NewWithConfig(config.LoggingCfg{}, stderr)
}

func TestRunOnce_EndToEnd(t *testing.T) {
	root := t.TempDir()
	for _, f := range []string{"a/b.pyc", "a/.git/c.pyc", "examples/reports/x.txt", "notes.txt"} {
		p := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	}

	cfg := config.Default()
	cfg.Root = root
	cfg.DatabasePath = filepath.Join(t.TempDir(), "history.db")
	cfg.MetricsTextfile = filepath.Join(t.TempDir(), "treeclean.prom")

	var stdout, stderr bytes.Buffer
	report, err := RunOnce(context.Background(), cfg, quietLogger(&stderr), &stdout, false)
	require.NoError(t, err)
	assert.Equal(t, exitcodes.Success, ExitCode(report, err))

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	assert.Len(t, lines, 3)
	assert.NotContains(t, stdout.String(), "INFO", "logs never reach stdout")
	assert.Contains(t, stderr.String(), "Cleanup complete")

	prom, err := os.ReadFile(cfg.MetricsTextfile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "treeclean_entries_deleted_total 3")
	assert.Contains(t, string(prom), "treeclean_last_run_success 1")

	db, err := database.NewDeletionDB(cfg.DatabasePath)
	require.NoError(t, err)
	defer db.Close()
	records, err := db.GetRun(report.RunID)
	require.NoError(t, err)
	assert.Len(t, records, 3)

	// second run is a no-op
	stdout.Reset()
	report, err = RunOnce(context.Background(), cfg, quietLogger(&stderr), &stdout, false)
	require.NoError(t, err)
	assert.Empty(t, stdout.String())
	assert.Equal(t, exitcodes.Success, ExitCode(report, err))
}

func TestRunOnce_BadRoot(t *testing.T) {
	cfg := config.Default()
	cfg.Root = filepath.Join(t.TempDir(), "missing")

	var stdout, stderr bytes.Buffer
	report, err := RunOnce(context.Background(), cfg, quietLogger(&stderr), &stdout, false)
	assert.ErrorIs(t, err, ErrConfig)
	assert.Equal(t, exitcodes.InvalidConfig, ExitCode(report, err))
}

func TestRunOnce_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var stdout, stderr bytes.Buffer
	report, err := RunOnce(ctx, config.Default(), quietLogger(&stderr), &stdout, false)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, exitcodes.RuntimeError, ExitCode(report, err))
}

func TestExitCode(t *testing.T) {
	access := fsops.Classify("remove", "/x", os.ErrPermission)
	gone := fsops.Classify("remove", "/x", os.ErrNotExist)

	tests := []struct {
		name   string
		report *cleanup.Report
		err    error
		want   int
	}{
		{"clean", &cleanup.Report{}, nil, exitcodes.Success},
		{"vanished only", &cleanup.Report{Errors: []error{gone}}, nil, exitcodes.Success},
		{"access", &cleanup.Report{Errors: []error{gone, access}}, nil, exitcodes.RuntimeError},
		{"safety", &cleanup.Report{Errors: []error{access, safety.ErrSymlinkEscape}}, nil, exitcodes.SafetyViolation},
		{"config", nil, ErrConfig, exitcodes.InvalidConfig},
		{"runtime", nil, errors.New("boom"), exitcodes.RuntimeError},
		{"nil report", nil, nil, exitcodes.RuntimeError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.report, tt.err))
		})
	}
}
