package database

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// DeletionDB stores the history of every action treeclean took.
type DeletionDB struct {
	db     *sql.DB
	insert *sql.Stmt
}

// Record is one action taken on one entry during a run.
type Record struct {
	ID         int64     `json:"id"`
	RunID      string    `json:"run_id"`
	Timestamp  time.Time `json:"timestamp"`
	Action     string    `json:"action"` // DELETE, DRY_RUN, SKIP or ERROR
	Path       string    `json:"path"`
	FileName   string    `json:"file_name"`
	ObjectType string    `json:"object_type"`
	Size       int64     `json:"size"`
	Rule       string    `json:"rule"`   // matching rule, e.g. "suffix:.pyc"
	Reason     string    `json:"reason"` // rule kind or "inherited"
	Error      string    `json:"error,omitempty"`
}

// migrations are applied in order; index i brings the schema to version i+1.
var migrations = []string{
	`CREATE TABLE deletions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		timestamp DATETIME NOT NULL,
		action TEXT NOT NULL,
		path TEXT NOT NULL,
		file_name TEXT,
		object_type TEXT NOT NULL,
		size INTEGER NOT NULL,
		rule TEXT,
		reason TEXT,
		error_message TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX idx_timestamp ON deletions(timestamp);
	CREATE INDEX idx_run_id ON deletions(run_id);
	CREATE INDEX idx_action ON deletions(action);
	CREATE INDEX idx_path ON deletions(path);
	CREATE INDEX idx_rule ON deletions(rule);`,
}

const insertRecord = `
INSERT INTO deletions (
	run_id, timestamp, action, path, file_name, object_type, size,
	rule, reason, error_message
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// NewDeletionDB opens (creating if needed) the history database at dbPath.
func NewDeletionDB(dbPath string) (_ *DeletionDB, err error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}

	params := url.Values{}
	params.Set("_loc", "auto")
	params.Set("_journal_mode", "WAL")
	params.Set("_synchronous", "NORMAL")
	params.Set("_busy_timeout", "5000")

	db, err := sql.Open("sqlite3", "file:"+dbPath+"?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err != nil {
			db.Close()
		}
	}()

	// Ping does not create the file, a statement does.
	if err = migrate(db); err != nil {
		return nil, fmt.Errorf("failed to initialize database %s: %w", dbPath, err)
	}

	stmt, err := db.Prepare(insertRecord)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare insert: %w", err)
	}

	return &DeletionDB{db: db, insert: stmt}, nil
}

func migrate(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return err
	}

	var current int
	if err := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&current); err != nil {
		return err
	}

	for v := current; v < len(migrations); v++ {
		tx, err := db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(migrations[v]); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d: %w", v+1, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_version (version) VALUES (?)`, v+1); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d: %w", v+1, err)
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	return nil
}

// SchemaVersion returns the applied schema version.
func (d *DeletionDB) SchemaVersion() (int, error) {
	var v int
	err := d.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&v)
	return v, err
}

// RecordDeletion inserts one history row. A zero Timestamp means now and
// an empty FileName is derived from Path.
func (d *DeletionDB) RecordDeletion(r Record) error {
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now()
	}
	if r.FileName == "" {
		r.FileName = filepath.Base(r.Path)
	}

	_, err := d.insert.Exec(
		r.RunID, r.Timestamp, r.Action, r.Path, r.FileName, r.ObjectType,
		r.Size, r.Rule, r.Reason, r.Error,
	)
	return err
}

func (d *DeletionDB) Close() error {
	d.insert.Close()
	return d.db.Close()
}

// Vacuum compacts the file after DeleteOldRecords.
func (d *DeletionDB) Vacuum() error {
	_, err := d.db.Exec("VACUUM")
	return err
}
