package safety

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"treeclean/internal/rules"
)

var (
	ErrInvalidPath   = errors.New("invalid path")
	ErrRootTarget    = errors.New("refusing to delete the cleaning root")
	ErrProtectedPath = errors.New("protected path")
	ErrOutsideRoot   = errors.New("outside cleaning root")
	ErrTraversal     = errors.New("path traversal detected")
	ErrSymlinkEscape = errors.New("symlink escape detected")
)

// Validator is the last gate before anything reaches a Deleter. It
// re-checks every target independently of how the target was selected.
type Validator struct {
	Root    string
	Exclude rules.Set

	resolvedRoot string
}

// NewValidator creates a validator for root. Targets matching exclude are
// refused even if a caller asks for them.
func NewValidator(root string, exclude rules.Set) (*Validator, error) {
	abs, err := NormalizePath(root)
	if err != nil {
		return nil, err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, err
	}
	return &Validator{
		Root:         abs,
		Exclude:      exclude,
		resolvedRoot: filepath.Clean(resolved),
	}, nil
}

// ValidateDeleteTarget authorizes deleting rel, a path relative to Root.
// It returns the absolute path to hand to the deleter.
func (v *Validator) ValidateDeleteTarget(rel string) (string, error) {
	if strings.TrimSpace(rel) == "" {
		return "", ErrInvalidPath
	}
	if filepath.IsAbs(rel) {
		return "", ErrOutsideRoot
	}

	// 1. No ".." anywhere in the relative input
	if DetectTraversal(rel) {
		return "", ErrTraversal
	}

	cleaned := filepath.Clean(rel)
	if cleaned == "." {
		return "", ErrRootTarget
	}
	target := filepath.Join(v.Root, cleaned)

	// 2. Must stay inside the root after joining
	if !hasPathPrefix(target, v.Root) {
		return "", ErrOutsideRoot
	}

	// 3. Exclusion rules always win
	if _, hit := v.Exclude.Match(filepath.ToSlash(cleaned)); hit {
		return "", ErrProtectedPath
	}

	// 4. The parent must not resolve outside the root through a symlink.
	// The target itself may be a symlink: removing a link never follows it.
	escaped, err := DetectSymlinkEscape(filepath.Dir(target), v.resolvedRoot)
	if err != nil {
		// A vanished parent means the delete will report not-found itself
		if os.IsNotExist(err) {
			return target, nil
		}
		return "", err
	}
	if escaped {
		return "", ErrSymlinkEscape
	}

	return target, nil
}

// NormalizePath converts path to absolute, cleaned form
func NormalizePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", ErrInvalidPath
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", ErrInvalidPath
	}
	return filepath.Clean(abs), nil
}

// DetectTraversal blocks any ".." segment in raw input
func DetectTraversal(raw string) bool {
	parts := strings.Split(filepath.ToSlash(raw), "/")
	for _, p := range parts {
		if p == ".." {
			return true
		}
	}
	return false
}

// DetectSymlinkEscape resolves dir and reports whether it lands outside
// resolvedRoot.
func DetectSymlinkEscape(dir, resolvedRoot string) (bool, error) {
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return false, err
	}
	resolvedAbs, err := filepath.Abs(resolved)
	if err != nil {
		return false, err
	}
	return !hasPathPrefix(filepath.Clean(resolvedAbs), resolvedRoot), nil
}

// hasPathPrefix checks if path has the given prefix
func hasPathPrefix(path, prefix string) bool {
	path = filepath.Clean(path)
	prefix = filepath.Clean(prefix)

	if prefix == string(os.PathSeparator) {
		return strings.HasPrefix(path, prefix)
	}
	if path == prefix {
		return true
	}
	return strings.HasPrefix(path, prefix+string(os.PathSeparator))
}
