package database

import (
	"database/sql"
	"time"
)

const selectColumns = `
	SELECT id, run_id, timestamp, tool, action, status, path, local_path,
	       file_name, size, reason, error_message
	FROM operations
`

// GetRecentOperations returns the N most recent operations
func (d *OperationDB) GetRecentOperations(limit int) ([]OperationRecord, error) {
	return d.queryOperations(selectColumns+`
	ORDER BY timestamp DESC, id DESC
	LIMIT ?
	`, limit)
}

// GetOperationsByRun returns every operation of one run in execution order
func (d *OperationDB) GetOperationsByRun(runID string) ([]OperationRecord, error) {
	return d.queryOperations(selectColumns+`
	WHERE run_id = ?
	ORDER BY id ASC
	`, runID)
}

// GetOperationsByAction returns operations filtered by action
func (d *OperationDB) GetOperationsByAction(action string) ([]OperationRecord, error) {
	return d.queryOperations(selectColumns+`
	WHERE action = ?
	ORDER BY timestamp DESC, id DESC
	`, action)
}

// GetOperationsByStatus returns operations filtered by status
func (d *OperationDB) GetOperationsByStatus(status string) ([]OperationRecord, error) {
	return d.queryOperations(selectColumns+`
	WHERE status = ?
	ORDER BY timestamp DESC, id DESC
	`, status)
}

// GetOperationsByPath returns operations whose remote path matches a LIKE pattern
func (d *OperationDB) GetOperationsByPath(pathPattern string) ([]OperationRecord, error) {
	return d.queryOperations(selectColumns+`
	WHERE path LIKE ?
	ORDER BY timestamp DESC, id DESC
	`, pathPattern)
}

// GetTotalBytesUploaded returns bytes successfully uploaded in a time range
func (d *OperationDB) GetTotalBytesUploaded(start, end time.Time) (int64, error) {
	query := `
	SELECT COALESCE(SUM(size), 0)
	FROM operations
	WHERE action = 'UPLOAD' AND status = 'OK' AND timestamp BETWEEN ? AND ?
	`

	var total int64
	err := d.db.QueryRow(query, start, end).Scan(&total)
	return total, err
}

// GetOperationCountByAction returns count of operations grouped by action since a time
func (d *OperationDB) GetOperationCountByAction(since time.Time) (map[string]int, error) {
	return d.countBy("action", since)
}

// GetOperationCountByStatus returns count of operations grouped by status since a time
func (d *OperationDB) GetOperationCountByStatus(since time.Time) (map[string]int, error) {
	return d.countBy("status", since)
}

// countBy groups on a fixed column name; never pass user input as column
func (d *OperationDB) countBy(column string, since time.Time) (map[string]int, error) {
	rows, err := d.db.Query(`
	SELECT `+column+`, COUNT(*)
	FROM operations
	WHERE timestamp >= ?
	GROUP BY `+column, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return nil, err
		}
		counts[key] = count
	}

	return counts, rows.Err()
}

// OperationStats holds aggregated statistics
type OperationStats struct {
	TotalRuns     int
	TotalOK       int
	TotalSkipped  int
	TotalErrors   int
	BytesUploaded int64
	ByAction      map[string]int
	ByStatus      map[string]int
	StartDate     time.Time
	EndDate       time.Time
}

// GetOperationStats returns statistics for the last N days
func (d *OperationDB) GetOperationStats(days int) (*OperationStats, error) {
	now := time.Now()
	since := now.AddDate(0, 0, -days)

	stats := &OperationStats{
		StartDate: since,
		EndDate:   now,
	}

	err := d.db.QueryRow(`
		SELECT
			COUNT(DISTINCT run_id),
			COUNT(CASE WHEN status = 'OK' THEN 1 END),
			COUNT(CASE WHEN status = 'SKIPPED' THEN 1 END),
			COUNT(CASE WHEN status = 'ERROR' THEN 1 END)
		FROM operations
		WHERE timestamp >= ?
	`, since).Scan(&stats.TotalRuns, &stats.TotalOK, &stats.TotalSkipped, &stats.TotalErrors)
	if err != nil {
		return nil, err
	}

	stats.BytesUploaded, err = d.GetTotalBytesUploaded(since, now)
	if err != nil {
		return nil, err
	}

	stats.ByAction, err = d.GetOperationCountByAction(since)
	if err != nil {
		return nil, err
	}

	stats.ByStatus, err = d.GetOperationCountByStatus(since)
	if err != nil {
		return nil, err
	}

	return stats, nil
}

// DeleteOldRecords removes records older than specified days
func (d *OperationDB) DeleteOldRecords(olderThanDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -olderThanDays)

	result, err := d.db.Exec(`DELETE FROM operations WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

// queryOperations executes a query and scans the resulting records
func (d *OperationDB) queryOperations(query string, args ...interface{}) ([]OperationRecord, error) {
	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []OperationRecord
	for rows.Next() {
		var r OperationRecord
		var localPath, fileName, reason, errMsg sql.NullString

		err := rows.Scan(
			&r.ID, &r.RunID, &r.Timestamp, &r.Tool, &r.Action, &r.Status,
			&r.Path, &localPath, &fileName, &r.Size, &reason, &errMsg,
		)
		if err != nil {
			return nil, err
		}

		r.LocalPath = localPath.String
		r.FileName = fileName.String
		r.Reason = reason.String
		r.ErrorMessage = errMsg.String

		records = append(records, r)
	}

	return records, rows.Err()
}
