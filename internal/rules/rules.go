// Package rules holds the match rules that decide which tree entries are
// deletion candidates and which are protected.
package rules

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Kind selects how a rule pattern is compared against a path.
type Kind string

const (
	// KindSuffix matches when the slash path ends with the pattern.
	KindSuffix Kind = "suffix"
	// KindSegments matches when the pattern's segments appear as a
	// contiguous run of whole segments anywhere in the path.
	KindSegments Kind = "segments"
	// KindName matches when the final segment equals the pattern.
	KindName Kind = "name"
	// KindGlob matches the whole relative path with doublestar syntax.
	KindGlob Kind = "glob"
)

var (
	ErrEmptyPattern = errors.New("rule pattern is empty")
	ErrUnknownKind  = errors.New("unknown rule kind")
	ErrBadGlob      = errors.New("invalid glob pattern")
)

// Rule is one (kind, pattern) pair.
type Rule struct {
	Kind    Kind   `yaml:"kind" json:"kind"`
	Pattern string `yaml:"pattern" json:"pattern"`
}

// String renders the rule the way it appears in logs and history records.
func (r Rule) String() string {
	return fmt.Sprintf("%s:%s", r.Kind, r.Pattern)
}

// Validate reports whether the rule can be evaluated.
func (r Rule) Validate() error {
	if strings.TrimSpace(r.Pattern) == "" {
		return fmt.Errorf("%w (kind %q)", ErrEmptyPattern, r.Kind)
	}
	switch r.Kind {
	case KindSuffix, KindName:
		return nil
	case KindSegments:
		if len(splitSegments(r.Pattern)) == 0 {
			return fmt.Errorf("%w (kind %q)", ErrEmptyPattern, r.Kind)
		}
		return nil
	case KindGlob:
		if !doublestar.ValidatePattern(r.Pattern) {
			return fmt.Errorf("%w: %s", ErrBadGlob, r.Pattern)
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, r.Kind)
	}
}

// Match evaluates the rule against a slash-separated path relative to the
// cleaning root.
func (r Rule) Match(rel string) bool {
	rel = normalize(rel)
	if rel == "" {
		return false
	}
	switch r.Kind {
	case KindSuffix:
		return strings.HasSuffix(rel, r.Pattern)
	case KindName:
		return path.Base(rel) == r.Pattern
	case KindSegments:
		return containsSegments(splitSegments(rel), splitSegments(r.Pattern))
	case KindGlob:
		ok, err := doublestar.Match(r.Pattern, rel)
		return err == nil && ok
	}
	return false
}

// Set is an ordered list of rules. The first match wins.
type Set []Rule

// Match returns the first rule matching rel.
func (s Set) Match(rel string) (Rule, bool) {
	for _, r := range s {
		if r.Match(rel) {
			return r, true
		}
	}
	return Rule{}, false
}

// Validate checks every rule in order and returns the first failure.
func (s Set) Validate() error {
	for i, r := range s {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("rule %d: %w", i, err)
		}
	}
	return nil
}

func normalize(rel string) string {
	rel = strings.ReplaceAll(rel, `\`, "/")
	rel = path.Clean(rel)
	rel = strings.TrimPrefix(rel, "./")
	if rel == "." || rel == "/" {
		return ""
	}
	return strings.TrimPrefix(rel, "/")
}

func splitSegments(p string) []string {
	parts := strings.Split(strings.ReplaceAll(p, `\`, "/"), "/")
	out := parts[:0]
	for _, s := range parts {
		if s != "" && s != "." {
			out = append(out, s)
		}
	}
	return out
}

func containsSegments(haystack, needle []string) bool {
	if len(needle) == 0 || len(needle) > len(haystack) {
		return false
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		match := true
		for j := range needle {
			if haystack[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
