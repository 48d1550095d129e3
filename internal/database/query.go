package database

import (
	"database/sql"
	"time"
)

const selectColumns = `
	SELECT id, run_id, timestamp, action, path, file_name, object_type, size,
	       rule, reason, error_message
	FROM deletions
`

// GetRecentDeletions returns the N most recent records
func (d *DeletionDB) GetRecentDeletions(limit int) ([]Record, error) {
	return d.queryRecords(selectColumns+`
	ORDER BY timestamp DESC, id DESC
	LIMIT ?
	`, limit)
}

// GetDeletionsByAction returns records filtered by action type
func (d *DeletionDB) GetDeletionsByAction(action string) ([]Record, error) {
	return d.queryRecords(selectColumns+`
	WHERE action = ?
	ORDER BY timestamp DESC, id DESC
	`, action)
}

// GetDeletionsByRule returns records whose matching rule equals rule
func (d *DeletionDB) GetDeletionsByRule(rule string) ([]Record, error) {
	return d.queryRecords(selectColumns+`
	WHERE rule = ? OR rule LIKE ? || ' (via %'
	ORDER BY timestamp DESC, id DESC
	`, rule, rule)
}

// GetDeletionsByPath returns records matching a path pattern (SQL LIKE)
func (d *DeletionDB) GetDeletionsByPath(pathPattern string) ([]Record, error) {
	return d.queryRecords(selectColumns+`
	WHERE path LIKE ?
	ORDER BY timestamp DESC, id DESC
	`, pathPattern)
}

// GetRun returns every record of one run in insertion order
func (d *DeletionDB) GetRun(runID string) ([]Record, error) {
	return d.queryRecords(selectColumns+`
	WHERE run_id = ?
	ORDER BY id ASC
	`, runID)
}

// DeletionStats holds aggregated statistics
type DeletionStats struct {
	Runs            int            `json:"runs"`
	TotalDeletions  int            `json:"total_deletions"`
	TotalSkipped    int            `json:"total_skipped"`
	TotalErrors     int            `json:"total_errors"`
	TotalSpaceFreed int64          `json:"total_space_freed"`
	ByRule          map[string]int `json:"by_rule"`
	StartDate       time.Time      `json:"start_date"`
	EndDate         time.Time      `json:"end_date"`
}

// GetDeletionStats returns statistics for the last days
func (d *DeletionDB) GetDeletionStats(days int) (*DeletionStats, error) {
	now := time.Now()
	since := now.AddDate(0, 0, -days)

	stats := &DeletionStats{
		StartDate: since,
		EndDate:   now,
		ByRule:    make(map[string]int),
	}

	err := d.db.QueryRow(`
		SELECT
			COUNT(DISTINCT run_id),
			COUNT(CASE WHEN action = 'DELETE' THEN 1 END),
			COUNT(CASE WHEN action = 'SKIP' THEN 1 END),
			COUNT(CASE WHEN action = 'ERROR' THEN 1 END),
			COALESCE(SUM(CASE WHEN action = 'DELETE' THEN size ELSE 0 END), 0)
		FROM deletions
		WHERE timestamp >= ?
	`, since).Scan(&stats.Runs, &stats.TotalDeletions, &stats.TotalSkipped, &stats.TotalErrors, &stats.TotalSpaceFreed)
	if err != nil {
		return nil, err
	}

	rows, err := d.db.Query(`
		SELECT reason, COUNT(*)
		FROM deletions
		WHERE action = 'DELETE' AND timestamp >= ?
		GROUP BY reason
	`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var reason sql.NullString
		var count int
		if err := rows.Scan(&reason, &count); err != nil {
			return nil, err
		}
		stats.ByRule[reason.String] = count
	}

	return stats, rows.Err()
}

// DeleteOldRecords removes records older than specified days
func (d *DeletionDB) DeleteOldRecords(olderThanDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -olderThanDays)

	result, err := d.db.Exec(`DELETE FROM deletions WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

// queryRecords executes a query and scans the results
func (d *DeletionDB) queryRecords(query string, args ...interface{}) ([]Record, error) {
	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		var fileName, rule, reason, errMsg sql.NullString

		err := rows.Scan(
			&r.ID, &r.RunID, &r.Timestamp, &r.Action, &r.Path, &fileName,
			&r.ObjectType, &r.Size, &rule, &reason, &errMsg,
		)
		if err != nil {
			return nil, err
		}

		r.FileName = fileName.String
		r.Rule = rule.String
		r.Reason = reason.String
		r.Error = errMsg.String

		records = append(records, r)
	}

	return records, rows.Err()
}
