package scan

import (
	"fmt"

	"treeclean/internal/rules"
)

// DeletionReason captures why an entry was selected for deletion.
// An entry either matched a rule itself or sits below a directory that did.
type DeletionReason struct {
	Rule rules.Rule

	// Inherited is set when the match came from an ancestor directory;
	// From names that ancestor relative to the root.
	Inherited bool
	From      string
}

// HasReason returns true if a rule selected the entry.
func (dr DeletionReason) HasReason() bool {
	return dr.Rule.Pattern != ""
}

// ToLogString formats the reason for structured logging.
// Example: "segments:examples/reports (via examples/reports)"
func (dr DeletionReason) ToLogString() string {
	if !dr.HasReason() {
		return "unknown"
	}
	if dr.Inherited {
		return fmt.Sprintf("%s (via %s)", dr.Rule, dr.From)
	}
	return dr.Rule.String()
}

// ToHumanReadable formats the reason for terminal output.
func (dr DeletionReason) ToHumanReadable() string {
	if !dr.HasReason() {
		return "Unknown reason"
	}

	var what string
	switch dr.Rule.Kind {
	case rules.KindSuffix:
		what = fmt.Sprintf("name ends with %q", dr.Rule.Pattern)
	case rules.KindSegments:
		what = fmt.Sprintf("path contains %q", dr.Rule.Pattern)
	case rules.KindName:
		what = fmt.Sprintf("name is %q", dr.Rule.Pattern)
	default:
		what = fmt.Sprintf("path matches %q", dr.Rule.Pattern)
	}

	if dr.Inherited {
		return fmt.Sprintf("Inside %s, whose %s", dr.From, what)
	}
	return "The " + what
}

// GetPrimaryReason returns a short label for grouping in history queries.
func (dr DeletionReason) GetPrimaryReason() string {
	if !dr.HasReason() {
		return "unknown"
	}
	if dr.Inherited {
		return "inherited"
	}
	return string(dr.Rule.Kind)
}
