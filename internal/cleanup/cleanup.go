package cleanup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"treeclean/internal/database"
	"treeclean/internal/fsops"
	"treeclean/internal/metrics"
	"treeclean/internal/rules"
	"treeclean/internal/safety"
	"treeclean/internal/scan"
)

// CleanupLogger interface for structured logging in cleanup
type CleanupLogger interface {
	Info(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// cleanupStdLogger sends Info to one standard logger and Error to another
type cleanupStdLogger struct {
	info *log.Logger
	errs *log.Logger
}

func (l *cleanupStdLogger) Info(msg string, args ...interface{}) {
	logWithLevel(l.info, "INFO", msg, args...)
}

func (l *cleanupStdLogger) Error(msg string, args ...interface{}) {
	logWithLevel(l.errs, "ERROR", msg, args...)
}

func logWithLevel(l *log.Logger, level, msg string, args ...interface{}) {
	var parts []interface{}
	parts = append(parts, fmt.Sprintf("[%s]", level), msg)
	parts = append(parts, args...)
	l.Println(parts...)
}

// Metrics interface for cleanup metrics
type Metrics interface {
	EntriesDeletedTotal() prometheus.Counter
	BytesFreedTotal() prometheus.Counter
	EntriesRetainedTotal() prometheus.Counter
	ErrorsTotal(kind string) prometheus.Counter
}

// cleanupMetrics wraps a metrics.Set to implement Metrics interface
type cleanupMetrics struct {
	set *metrics.Set
}

func (m *cleanupMetrics) EntriesDeletedTotal() prometheus.Counter  { return m.set.EntriesDeleted }
func (m *cleanupMetrics) BytesFreedTotal() prometheus.Counter      { return m.set.BytesFreed }
func (m *cleanupMetrics) EntriesRetainedTotal() prometheus.Counter { return m.set.EntriesRetained }
func (m *cleanupMetrics) ErrorsTotal(kind string) prometheus.Counter {
	return m.set.Errors.WithLabelValues(kind)
}

// Action labels, shared with the history database
const (
	ActionDelete = "DELETE"
	ActionDryRun = "DRY_RUN"
	ActionSkip   = "SKIP"
	ActionError  = "ERROR"
)

// Report summarizes one cleaning run.
type Report struct {
	RunID    string
	Deleted  []string // printed paths, in deletion order
	Retained []string // candidate directories kept because something inside survived
	Bytes    int64
	Errors   []error
	Duration time.Duration
}

// Failed reports whether the run should exit non-zero. Vanished entries
// are reported but tolerated: the goal state was reached anyway.
func (r *Report) Failed() bool {
	for _, err := range r.Errors {
		if !fsops.IsNotFound(err) {
			return true
		}
	}
	return false
}

// Cleaner performs cleanup operations with structured logging
type Cleaner struct {
	logger    CleanupLogger
	metrics   Metrics
	out       io.Writer
	dryRun    bool
	db        *database.DeletionDB // Database for recording deletion history
	deleter   fsops.Deleter
	validator *safety.Validator
	scanner   *scan.Scanner
	now       func() time.Time
}

// Options configures a Cleaner. Zero values pick the defaults: log.Default,
// the real deleter, no history, and metrics in a fresh private registry.
type Options struct {
	Logger  *log.Logger
	Errors  *log.Logger
	Out     io.Writer // receives one deleted path per line
	DryRun  bool
	DB      *database.DeletionDB
	Metrics *metrics.Set
	Debug   bool
}

// NewCleaner creates a Cleaner for root with filter.
func NewCleaner(root string, filter rules.Filter, opts Options) (*Cleaner, error) {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Errors == nil {
		opts.Errors = opts.Logger
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New(prometheus.NewRegistry())
	}

	validator, err := safety.NewValidator(root, filter.Exclude)
	if err != nil {
		return nil, fmt.Errorf("init validator: %w", err)
	}

	return &Cleaner{
		logger:    &cleanupStdLogger{info: opts.Logger, errs: opts.Errors},
		metrics:   &cleanupMetrics{set: opts.Metrics},
		out:       opts.Out,
		dryRun:    opts.DryRun,
		db:        opts.DB,
		deleter:   fsops.OSDeleter{},
		validator: validator,
		scanner:   scan.NewScanner(opts.Logger, filter, opts.Debug),
		now:       time.Now,
	}, nil
}

// SetDeleter replaces the filesystem deleter (tests use fsops.FakeDeleter)
func (c *Cleaner) SetDeleter(d fsops.Deleter) {
	c.deleter = d
}

// SetValidator replaces the safety validator
func (c *Cleaner) SetValidator(v *safety.Validator) {
	c.validator = v
}

// Run walks root and deletes every candidate. Individual failures are
// logged and collected in the report; the walk keeps going. The returned
// error is reserved for failures that stop the run as a whole.
func (c *Cleaner) Run(ctx context.Context, root string) (*Report, error) {
	start := c.now()
	report := &Report{RunID: start.UTC().Format("20060102T150405.000000000Z")}

	entries, walkErrs, err := c.scanner.Walk(ctx, root)
	for _, werr := range walkErrs {
		c.recordError(report, werr)
	}
	if err != nil {
		return report, err
	}

	c.logger.Info("Starting cleanup", "root", root, "entries", len(entries), "dry_run", c.dryRun)

	// dirty holds directories that will still contain something after
	// this run; they must not be removed.
	dirty := make(map[string]bool)
	markParentDirty := func(rel string) {
		if parent := path.Dir(rel); parent != "." {
			dirty[parent] = true
		}
	}

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			report.Duration = c.now().Sub(start)
			return report, err
		}

		if e.Incomplete {
			dirty[e.Rel] = true
		}

		if !e.Candidate() {
			markParentDirty(e.Rel)
			continue
		}

		if e.IsDir && dirty[e.Rel] {
			c.logger.Info("Retaining directory with surviving contents", "path", e.Path)
			c.record(report, ActionSkip, e, "retained: not empty after cleanup")
			c.metrics.EntriesRetainedTotal().Inc()
			report.Retained = append(report.Retained, e.Path)
			markParentDirty(e.Rel)
			continue
		}

		if !c.deleteEntry(report, e) {
			markParentDirty(e.Rel)
		}
	}

	report.Duration = c.now().Sub(start)
	c.logger.Info("Cleanup complete",
		"deleted", len(report.Deleted),
		"retained", len(report.Retained),
		"errors", len(report.Errors),
		"bytes_freed", report.Bytes,
		"duration", report.Duration,
	)

	return report, nil
}

// deleteEntry validates and deletes one candidate and reports whether the
// entry is gone afterwards.
func (c *Cleaner) deleteEntry(report *Report, e scan.Entry) bool {
	target, err := c.validator.ValidateDeleteTarget(e.Rel)
	if err != nil {
		c.logger.Error("Safety validator refused delete", "path", e.Path, "error", err)
		c.record(report, ActionSkip, e, err.Error())
		c.metrics.ErrorsTotal("safety").Inc()
		report.Errors = append(report.Errors, fmt.Errorf("%s: %w", e.Path, err))
		return false
	}

	action := ActionDelete
	if c.dryRun {
		action = ActionDryRun
	} else {
		if e.IsDir {
			err = c.deleter.RemoveAll(target)
		} else {
			err = c.deleter.Remove(target)
		}
		err = fsops.Classify("remove", e.Path, err)
	}

	if err != nil {
		c.recordError(report, err)
		c.record(report, ActionError, e, err.Error())
		return fsops.IsNotFound(err)
	}

	if _, werr := fmt.Fprintln(c.out, e.Path); werr != nil {
		c.logger.Error("Failed to write output", "error", werr)
	}
	report.Deleted = append(report.Deleted, e.Path)
	c.record(report, action, e, "")

	if !c.dryRun {
		report.Bytes += e.Size
		c.metrics.EntriesDeletedTotal().Inc()
		c.metrics.BytesFreedTotal().Add(float64(e.Size))
	}
	return true
}

func (c *Cleaner) recordError(report *Report, err error) {
	kind := fsops.Kind(err)
	if fsops.IsNotFound(err) {
		c.logger.Info("Entry already gone", "error", err)
	} else {
		c.logger.Error("Cleanup failure", "kind", kind, "error", err)
	}
	c.metrics.ErrorsTotal(kind).Inc()
	report.Errors = append(report.Errors, err)
}

// record writes one history row when a database is configured. History
// failures are logged and never fail the run.
func (c *Cleaner) record(report *Report, action string, e scan.Entry, msg string) {
	if c.db == nil {
		return
	}
	rec := database.Record{
		RunID:      report.RunID,
		Timestamp:  c.now(),
		Action:     action,
		Path:       e.Path,
		ObjectType: objectType(e),
		Size:       e.Size,
		Rule:       e.Reason.ToLogString(),
		Reason:     e.Reason.GetPrimaryReason(),
		Error:      msg,
	}
	if err := c.db.RecordDeletion(rec); err != nil {
		c.logger.Error("Failed to record to database", "path", e.Path, "error", err)
	}
}

func objectType(e scan.Entry) string {
	if e.IsDir {
		return "directory"
	}
	return "file"
}

// IsSafetyError reports whether err came from the safety validator.
func IsSafetyError(err error) bool {
	for _, target := range []error{
		safety.ErrInvalidPath,
		safety.ErrRootTarget,
		safety.ErrProtectedPath,
		safety.ErrOutsideRoot,
		safety.ErrTraversal,
		safety.ErrSymlinkEscape,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Summary renders the report counts for a final log line.
func (r *Report) Summary() string {
	return fmt.Sprintf("deleted=%d retained=%d errors=%d freed=%d bytes",
		len(r.Deleted), len(r.Retained), len(r.Errors), r.Bytes)
}
