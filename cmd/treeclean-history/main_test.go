package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"treeclean/internal/database"
)

func seedDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.db")
	db, err := database.NewDeletionDB(path)
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	for _, r := range []database.Record{
		{RunID: "r1", Timestamp: now.Add(-time.Second), Action: "DELETE", Path: "a/b.pyc", ObjectType: "file", Size: 2048, Rule: "suffix:.pyc", Reason: "suffix"},
		{RunID: "r1", Timestamp: now, Action: "ERROR", Path: "locked.pyc", ObjectType: "file", Rule: "suffix:.pyc", Reason: "suffix", Error: "access denied"},
	} {
		require.NoError(t, db.RecordDeletion(r))
	}
	return path
}

func runHistory(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRecentTable(t *testing.T) {
	dbPath := seedDB(t)

	out, err := runHistory(t, "--db", dbPath, "recent", "-n", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "a/b.pyc")
	assert.Contains(t, out, "locked.pyc")
	assert.Contains(t, out, "2.0 KB")
}

func TestActionJSON(t *testing.T) {
	dbPath := seedDB(t)

	out, err := runHistory(t, "--db", dbPath, "--json", "action", "ERROR")
	require.NoError(t, err)

	var records []database.Record
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "access denied", records[0].Error)
}

func TestStats(t *testing.T) {
	dbPath := seedDB(t)

	out, err := runHistory(t, "--db", dbPath, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Total Deletions:  1")
	assert.Contains(t, out, "Total Errors:     1")
}

func TestEmptyResult(t *testing.T) {
	dbPath := seedDB(t)

	out, err := runHistory(t, "--db", dbPath, "path", "nothing/%")
	require.NoError(t, err)
	assert.Contains(t, out, "No records found")
}

func TestPrune(t *testing.T) {
	dbPath := seedDB(t)

	out, err := runHistory(t, "--db", dbPath, "prune", "--older-than", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed 0 record(s)")
}

func TestMissingDatabase(t *testing.T) {
	_, err := runHistory(t, "--db", filepath.Join(t.TempDir(), "none.db"), "recent")
	assert.Error(t, err)
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.5 KB", formatBytes(1536))
	assert.Equal(t, "1.0 MB", formatBytes(1<<20))
}
