package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"treeclean/internal/rules"
)

func TestDeletionReason_Formatting(t *testing.T) {
	tests := []struct {
		name        string
		reason      DeletionReason
		wantLog     string
		wantHuman   string
		wantPrimary string
	}{
		{
			name:        "no reason",
			reason:      DeletionReason{},
			wantLog:     "unknown",
			wantHuman:   "Unknown reason",
			wantPrimary: "unknown",
		},
		{
			name:        "suffix",
			reason:      DeletionReason{Rule: rules.Rule{Kind: rules.KindSuffix, Pattern: ".pyc"}},
			wantLog:     "suffix:.pyc",
			wantHuman:   `The name ends with ".pyc"`,
			wantPrimary: "suffix",
		},
		{
			name:        "segments",
			reason:      DeletionReason{Rule: rules.Rule{Kind: rules.KindSegments, Pattern: "examples/reports"}},
			wantLog:     "segments:examples/reports",
			wantHuman:   `The path contains "examples/reports"`,
			wantPrimary: "segments",
		},
		{
			name: "inherited",
			reason: DeletionReason{
				Rule:      rules.Rule{Kind: rules.KindSuffix, Pattern: ".backup"},
				Inherited: true,
				From:      "old.backup",
			},
			wantLog:     "suffix:.backup (via old.backup)",
			wantHuman:   `Inside old.backup, whose name ends with ".backup"`,
			wantPrimary: "inherited",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantLog, tt.reason.ToLogString())
			assert.Equal(t, tt.wantHuman, tt.reason.ToHumanReadable())
			assert.Equal(t, tt.wantPrimary, tt.reason.GetPrimaryReason())
		})
	}
}
