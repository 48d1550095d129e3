// Package runner wires configuration, history, metrics and the cleaner
// into a single cleaning run.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"treeclean/internal/cleanup"
	"treeclean/internal/config"
	"treeclean/internal/database"
	"treeclean/internal/exitcodes"
	"treeclean/internal/logging"
	"treeclean/internal/metrics"
)

// ErrConfig marks failures that happen before any entry is touched.
var ErrConfig = errors.New("invalid configuration")

// RunOnce performs one cleaning run of cfg.Root. Deleted paths are written
// to stdout, diagnostics go through logger.
func RunOnce(ctx context.Context, cfg *config.Config, logger *logging.Logger, stdout io.Writer, debug bool) (*cleanup.Report, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil config", ErrConfig)
	}
	if logger == nil {
		logger = logging.New()
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if err := cfg.CheckRoot(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}

	var db *database.DeletionDB
	if cfg.DatabasePath != "" {
		var err error
		db, err = database.NewDeletionDB(cfg.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("open history: %w", err)
		}
		defer func() {
			if err := db.Close(); err != nil {
				logger.Errors.Printf("failed to close database: %v", err)
			}
		}()
	}

	set := metrics.New(prometheus.NewRegistry())

	cleaner, err := cleanup.NewCleaner(cfg.Root, cfg.Filter(), cleanup.Options{
		Logger:  logger.Logger,
		Errors:  logger.Errors,
		Out:     stdout,
		DryRun:  cfg.DryRun,
		DB:      db,
		Metrics: set,
		Debug:   debug,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}

	if cfg.DryRun {
		logger.Println("DRY RUN MODE: No files will be deleted")
	}

	report, runErr := cleaner.Run(ctx, cfg.Root)

	finished := time.Now()
	ok := runErr == nil && report != nil && !report.Failed()
	var took time.Duration
	if report != nil {
		took = report.Duration
	}
	set.RecordRun(finished, took, ok)

	if cfg.MetricsTextfile != "" {
		if err := set.WriteTextfile(cfg.MetricsTextfile); err != nil {
			logger.Errors.Printf("ERROR: %v", err)
		}
	}

	if report != nil {
		logger.Printf("run complete: %s duration=%s", report.Summary(), took)
	}
	return report, runErr
}

// ExitCode maps the outcome of RunOnce to the process exit code.
func ExitCode(report *cleanup.Report, err error) int {
	switch {
	case errors.Is(err, ErrConfig):
		return exitcodes.InvalidConfig
	case err != nil:
		return exitcodes.RuntimeError
	case report == nil:
		return exitcodes.RuntimeError
	}

	if !report.Failed() {
		return exitcodes.Success
	}
	for _, e := range report.Errors {
		if cleanup.IsSafetyError(e) {
			return exitcodes.SafetyViolation
		}
	}
	return exitcodes.RuntimeError
}
