package scan

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kr/fs"

	"treeclean/internal/fsops"
	"treeclean/internal/rules"
)

// Logger interface for structured logging
type Logger interface {
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Debug(msg string, args ...interface{})
}

// stdLogger wraps standard log.Logger to implement Logger interface
type stdLogger struct {
	*log.Logger
	debug bool
}

func (l *stdLogger) Info(msg string, args ...interface{}) {
	l.logWithLevel("INFO", msg, args...)
}

func (l *stdLogger) Warn(msg string, args ...interface{}) {
	l.logWithLevel("WARN", msg, args...)
}

func (l *stdLogger) Debug(msg string, args ...interface{}) {
	if l.debug {
		l.logWithLevel("DEBUG", msg, args...)
	}
}

func (l *stdLogger) logWithLevel(level, msg string, args ...interface{}) {
	var parts []interface{}
	parts = append(parts, fmt.Sprintf("[%s]", level), msg)
	parts = append(parts, args...)
	l.Logger.Println(parts...)
}

// Decision is what the scanner concluded about an entry.
type Decision int

const (
	Keep      Decision = iota // no rule selected it
	Delete                    // selected and not protected
	Protected                 // matched an exclusion rule; never descended into
)

func (d Decision) String() string {
	switch d {
	case Delete:
		return "delete"
	case Protected:
		return "protected"
	default:
		return "keep"
	}
}

// Entry is one filesystem entry below the root, in post-order.
type Entry struct {
	Path     string // root joined with Rel, as printed
	Rel      string // slash-separated, relative to the root
	Size     int64
	ModTime  time.Time
	IsDir    bool
	Decision Decision
	Reason   DeletionReason

	// Incomplete marks a directory whose children could not all be listed.
	Incomplete bool
}

// Candidate reports whether the entry should be deleted.
func (e Entry) Candidate() bool {
	return e.Decision == Delete
}

// Scanner walks a tree and classifies every entry against a filter.
type Scanner struct {
	logger Logger
	filter rules.Filter
}

// NewScanner creates a Scanner with the given logger and filter
func NewScanner(logger *log.Logger, filter rules.Filter, debug bool) *Scanner {
	if logger == nil {
		logger = log.Default()
	}
	return &Scanner{
		logger: &stdLogger{Logger: logger, debug: debug},
		filter: filter,
	}
}

var errNotDir = errors.New("scan root is not a directory")

type openDir struct {
	entry   *Entry
	isRoot  bool
	matched bool
}

// Walk visits root depth-first and returns its entries in post-order:
// every directory comes after all of its descendants. Directories matching
// the exclusion rules are pruned. Errors for individual entries are
// collected and the walk continues; the returned error is fatal (bad root
// or cancellation).
func (s *Scanner) Walk(ctx context.Context, root string) ([]Entry, []error, error) {
	info, err := os.Lstat(root)
	if err != nil {
		return nil, nil, fsops.Classify("walk", root, err)
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("%w: %s", errNotDir, root)
	}

	var (
		out     []Entry
		entErrs []error
		stack   []*openDir
	)

	emitUntilAncestor := func(rel string) {
		for len(stack) > 0 {
			top := stack[len(stack)-1]
			if top.isRoot || strings.HasPrefix(rel, top.entry.Rel+"/") {
				return
			}
			stack = stack[:len(stack)-1]
			out = append(out, *top.entry)
		}
	}

	walker := fs.Walk(root)
	for walker.Step() {
		if err := ctx.Err(); err != nil {
			return out, entErrs, err
		}

		p := walker.Path()
		if err := walker.Err(); err != nil {
			classified := fsops.Classify("walk", p, err)
			entErrs = append(entErrs, classified)
			s.logger.Warn("Cannot read entry", "path", p, "error", err)
			// kr/fs re-yields a directory it could not list; that
			// directory is on top of the stack.
			if n := len(stack); n > 0 && stack[n-1].entry.Path == p {
				stack[n-1].entry.Incomplete = true
			} else if p == root {
				return out, entErrs, classified
			}
			continue
		}

		if p == root {
			stack = append(stack, &openDir{entry: &Entry{Path: root, Rel: "."}, isRoot: true})
			continue
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			entErrs = append(entErrs, fsops.Classify("walk", p, err))
			continue
		}
		rel = filepath.ToSlash(rel)
		emitUntilAncestor(rel)

		fi := walker.Stat()
		e := &Entry{
			Path:    p,
			Rel:     rel,
			Size:    fi.Size(),
			ModTime: fi.ModTime(),
			IsDir:   fi.IsDir(),
		}

		var parent *openDir
		if len(stack) > 0 {
			parent = stack[len(stack)-1]
		}

		switch {
		case s.filter.Excluded(rel):
			e.Decision = Protected
			if e.IsDir {
				walker.SkipDir()
			}
		default:
			if rule, ok := s.filter.Included(rel); ok {
				e.Decision = Delete
				e.Reason = DeletionReason{Rule: rule}
			} else if parent != nil && parent.matched {
				e.Decision = Delete
				e.Reason = DeletionReason{
					Rule:      parent.entry.Reason.Rule,
					Inherited: true,
					From:      inheritedFrom(parent.entry),
				}
			}
		}

		if e.Decision == Delete {
			s.logger.Debug("Entry selected for deletion", "path", p, "reason", e.Reason.ToLogString())
		}

		if e.IsDir && e.Decision != Protected {
			stack = append(stack, &openDir{entry: e, matched: e.Decision == Delete})
			continue
		}
		out = append(out, *e)
	}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !top.isRoot {
			out = append(out, *top.entry)
		}
	}

	return out, entErrs, nil
}

func inheritedFrom(parent *Entry) string {
	if parent.Reason.Inherited {
		return parent.Reason.From
	}
	return parent.Rel
}

// Candidates filters entries down to the ones selected for deletion,
// preserving post-order.
func Candidates(entries []Entry) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.Candidate() {
			out = append(out, e)
		}
	}
	return out
}
