package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"treeclean/internal/config"
)

func TestQuietDropsInfoKeepsErrors(t *testing.T) {
	var stderr bytes.Buffer
	l := NewWithConfig(config.LoggingCfg{Quiet: true}, &stderr)

	l.Println("progress")
	l.Errors.Println("failure")

	assert.NotContains(t, stderr.String(), "progress")
	assert.Contains(t, stderr.String(), "failure")
	assert.NoError(t, l.Close())
}

func TestFileReceivesEverything(t *testing.T) {
	var stderr bytes.Buffer
	logPath := filepath.Join(t.TempDir(), "logs", "treeclean.log")
	l := NewWithConfig(config.LoggingCfg{
		File:       logPath,
		MaxSizeMB:  1,
		MaxBackups: 1,
		MaxAgeDays: 1,
		Quiet:      true,
	}, &stderr)

	l.Println("progress")
	l.Errors.Println("failure")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "progress")
	assert.Contains(t, string(data), "failure")
	assert.NotContains(t, stderr.String(), "progress")
}
