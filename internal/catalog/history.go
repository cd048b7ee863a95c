package catalog

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// History is an optional secondary index over scan activity, kept separate
// from the gob snapshot in Store: Store is the thing the comparator reads
// from on every run, History is a record of what happened and when (one
// upserted row per seen path, one row per scan run), queried by operators
// rather than by the scan pipeline itself.
type History struct {
	db *sql.DB
}

// OpenHistory opens (creating if necessary) the sqlite history database at
// path, enabling WAL mode for concurrent readers while a scan is writing.
func OpenHistory(path string) (*History, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	h := &History{db: db}
	if err := h.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return h, nil
}

func (h *History) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS file_seen (
		path TEXT PRIMARY KEY,
		last_modified DATETIME NOT NULL,
		last_seen_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS scan_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at DATETIME NOT NULL,
		finished_at DATETIME,
		files_enumerated INTEGER DEFAULT 0,
		groups_found INTEGER DEFAULT 0,
		aborted INTEGER DEFAULT 0
	);
	`
	_, err := h.db.Exec(schema)
	return err
}

func (h *History) Close() error { return h.db.Close() }

// RecordSeen upserts path's last-modified/last-seen timestamps, called once
// per file during enumeration.
func (h *History) RecordSeen(path string, modified time.Time) error {
	_, err := h.db.Exec(
		`INSERT INTO file_seen (path, last_modified, last_seen_at) VALUES (?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET last_modified = excluded.last_modified, last_seen_at = excluded.last_seen_at`,
		path, modified, time.Now(),
	)
	return err
}

// BeginRun inserts a new scan_runs row and returns its id.
func (h *History) BeginRun(startedAt time.Time) (int64, error) {
	res, err := h.db.Exec(`INSERT INTO scan_runs (started_at) VALUES (?)`, startedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// FinishRun records the outcome of the run started by BeginRun.
func (h *History) FinishRun(id int64, finishedAt time.Time, filesEnumerated, groupsFound int, aborted bool) error {
	_, err := h.db.Exec(
		`UPDATE scan_runs SET finished_at = ?, files_enumerated = ?, groups_found = ?, aborted = ? WHERE id = ?`,
		finishedAt, filesEnumerated, groupsFound, boolToInt(aborted), id,
	)
	return err
}

// LastSeen returns the last-seen timestamp recorded for path, if any.
func (h *History) LastSeen(path string) (time.Time, bool, error) {
	var lastSeen time.Time
	err := h.db.QueryRow(`SELECT last_seen_at FROM file_seen WHERE path = ?`, path).Scan(&lastSeen)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return lastSeen, true, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
