package logging

import (
	"io"
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"

	"treeclean/internal/config"
)

const flags = log.LstdFlags | log.Lmicroseconds

// Logger carries two standard loggers: Info for progress lines and Errors
// for failures. Both go to stderr and the optional rotated file; quiet mode
// keeps progress lines out of stderr.
type Logger struct {
	*log.Logger
	Errors *log.Logger

	file io.Closer
}

// New creates a logger writing to stderr.
func New() *Logger {
	return NewWithConfig(config.LoggingCfg{}, os.Stderr)
}

// NewWithConfig creates a logger for cfg. stderr is usually os.Stderr and
// is a parameter so tests can capture it.
func NewWithConfig(cfg config.LoggingCfg, stderr io.Writer) *Logger {
	var (
		info = stderr
		errs = stderr
		file io.WriteCloser
	)
	if cfg.Quiet {
		info = io.Discard
	}

	if cfg.File != "" {
		file = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
		info = io.MultiWriter(info, file)
		errs = io.MultiWriter(errs, file)
	}

	return &Logger{
		Logger: log.New(info, "", flags),
		Errors: log.New(errs, "", flags),
		file:   file,
	}
}

// Close releases the rotated log file, if any.
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}
