package database

import (
	"database/sql"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// OperationDB manages the SQLite database for remote operation history
type OperationDB struct {
	db *sql.DB
}

// OperationRecord represents a single remote operation
type OperationRecord struct {
	ID           int64
	RunID        string
	Timestamp    time.Time
	Tool         string // delete or upload
	Action       string // DELETE_FILE, REMOVE_DIR, MAKE_DIR, UPLOAD, LIST, SKIP
	Status       string // OK, ERROR, SKIPPED
	Path         string // Remote path
	LocalPath    string // Source path for uploads
	FileName     string
	Size         int64
	Reason       string
	ErrorMessage string
	CreatedAt    time.Time
}

// NewOperationDB creates a new database connection and initializes schema
func NewOperationDB(dbPath string) (*OperationDB, error) {
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}

	// file: prefix with _loc=auto enables automatic DATETIME parsing
	db, err := sql.Open("sqlite3", "file:"+dbPath+"?_loc=auto")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err != nil {
			db.Close()
		}
	}()

	// A real statement instead of Ping() so the file gets created now
	if _, err = db.Exec("SELECT 1"); err != nil {
		return nil, fmt.Errorf("failed to initialize database (check permissions on %s): %w", dbPath, err)
	}

	if _, err = db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if _, err = db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		return nil, fmt.Errorf("failed to set synchronous mode: %w", err)
	}

	odb := &OperationDB{db: db}
	if err = odb.initSchema(); err != nil {
		return nil, err
	}

	return odb, nil
}

// OpenOperationDB opens an existing history database without creating the
// file or touching the schema. With readOnly set SQLite refuses every write.
func OpenOperationDB(dbPath string, readOnly bool) (*OperationDB, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("database %s: %w", dbPath, err)
	}

	mode := "rw"
	if readOnly {
		mode = "ro"
	}
	db, err := sql.Open("sqlite3", "file:"+dbPath+"?mode="+mode+"&_loc=auto")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("SELECT 1 FROM operations LIMIT 1"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s is not an operation history database: %w", dbPath, err)
	}

	return &OperationDB{db: db}, nil
}

// initSchema creates tables and indexes if they don't exist
func (d *OperationDB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS operations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		timestamp DATETIME NOT NULL,
		tool TEXT NOT NULL,
		action TEXT NOT NULL,
		status TEXT NOT NULL,
		path TEXT NOT NULL,
		local_path TEXT,
		file_name TEXT,
		size INTEGER NOT NULL DEFAULT 0,
		reason TEXT,
		error_message TEXT,

		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_run_id ON operations(run_id);
	CREATE INDEX IF NOT EXISTS idx_timestamp ON operations(timestamp);
	CREATE INDEX IF NOT EXISTS idx_action ON operations(action);
	CREATE INDEX IF NOT EXISTS idx_status ON operations(status);
	CREATE INDEX IF NOT EXISTS idx_path ON operations(path);

	-- Metadata table for schema versioning
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`

	_, err := d.db.Exec(schema)
	return err
}

// RecordOperation inserts an operation into the database
func (d *OperationDB) RecordOperation(rec OperationRecord) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	if rec.FileName == "" {
		rec.FileName = path.Base(rec.Path)
	}

	query := `
	INSERT INTO operations (
		run_id, timestamp, tool, action, status, path, local_path,
		file_name, size, reason, error_message
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := d.db.Exec(
		query,
		rec.RunID,
		rec.Timestamp,
		rec.Tool,
		rec.Action,
		rec.Status,
		rec.Path,
		rec.LocalPath,
		rec.FileName,
		rec.Size,
		rec.Reason,
		rec.ErrorMessage,
	)

	return err
}

// Close closes the database connection
func (d *OperationDB) Close() error {
	return d.db.Close()
}

// Vacuum optimizes the database (run after pruning)
func (d *OperationDB) Vacuum() error {
	_, err := d.db.Exec("VACUUM")
	return err
}

// sqliteTimeLayouts are the forms SQLite hands back for MIN/MAX(timestamp)
var sqliteTimeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
}

func parseSQLiteTime(s string) (time.Time, bool) {
	for _, layout := range sqliteTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// GetDatabaseStats returns database statistics
func (d *OperationDB) GetDatabaseStats() (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	var totalRecords int64
	if err := d.db.QueryRow("SELECT COUNT(*) FROM operations").Scan(&totalRecords); err != nil {
		return nil, err
	}
	stats["total_records"] = totalRecords

	var totalRuns int64
	if err := d.db.QueryRow("SELECT COUNT(DISTINCT run_id) FROM operations").Scan(&totalRuns); err != nil {
		return nil, err
	}
	stats["total_runs"] = totalRuns

	var pageCount, pageSize int64
	if err := d.db.QueryRow("PRAGMA page_count").Scan(&pageCount); err != nil {
		return nil, err
	}
	if err := d.db.QueryRow("PRAGMA page_size").Scan(&pageSize); err != nil {
		return nil, err
	}
	stats["database_size_bytes"] = pageCount * pageSize

	var oldest, newest sql.NullString
	err := d.db.QueryRow("SELECT MIN(timestamp), MAX(timestamp) FROM operations").Scan(&oldest, &newest)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	if oldest.Valid {
		if t, ok := parseSQLiteTime(oldest.String); ok {
			stats["oldest_record"] = t
		}
	}
	if newest.Valid {
		if t, ok := parseSQLiteTime(newest.String); ok {
			stats["newest_record"] = t
		}
	}

	return stats, nil
}
