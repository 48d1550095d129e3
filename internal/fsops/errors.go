package fsops

import (
	"errors"
	"fmt"
	"io/fs"
)

// AccessError means an entry could not be read or deleted because of
// permissions.
type AccessError struct {
	Op   string
	Path string
	Err  error
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("access denied: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *AccessError) Unwrap() error { return e.Err }

// NotFoundError means an entry vanished between discovery and deletion.
type NotFoundError struct {
	Op   string
	Path string
	Err  error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("not found: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *NotFoundError) Unwrap() error { return e.Err }

// FilesystemError is any other OS-level failure during traversal or
// deletion.
type FilesystemError struct {
	Op   string
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("filesystem error: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error { return e.Err }

// Classify wraps err in the matching typed error. Nil stays nil and errors
// that are already classified pass through unchanged.
func Classify(op, path string, err error) error {
	if err == nil {
		return nil
	}
	var (
		ae *AccessError
		ne *NotFoundError
		fe *FilesystemError
	)
	if errors.As(err, &ae) || errors.As(err, &ne) || errors.As(err, &fe) {
		return err
	}
	switch {
	case errors.Is(err, fs.ErrPermission):
		return &AccessError{Op: op, Path: path, Err: err}
	case errors.Is(err, fs.ErrNotExist):
		return &NotFoundError{Op: op, Path: path, Err: err}
	default:
		return &FilesystemError{Op: op, Path: path, Err: err}
	}
}

// Kind returns a short label for metrics and history records.
func Kind(err error) string {
	var (
		ae *AccessError
		ne *NotFoundError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ae):
		return "access"
	case errors.As(err, &ne):
		return "not_found"
	default:
		return "filesystem"
	}
}

// IsNotFound reports whether err is, or wraps, a NotFoundError.
func IsNotFound(err error) bool {
	var ne *NotFoundError
	return errors.As(err, &ne)
}
