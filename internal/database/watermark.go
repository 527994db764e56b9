package database

import (
	"database/sql"
	"errors"
	"time"
)

const lastCheckKey = "last_check_time"

// LastCheckTime returns the start time of the most recently completed check
// cycle, or nil if no cycle has ever completed.
func (db *DB) LastCheckTime() (*time.Time, error) {
	var value string
	err := db.conn.QueryRow(
		"SELECT value FROM metadata WHERE key = ?", lastCheckKey,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		// Unparseable watermark is treated as a first run rather than
		// blocking every future cycle.
		return nil, nil
	}
	return &t, nil
}

// SetLastCheckTime records the start time of a completed check cycle.
func (db *DB) SetLastCheckTime(t time.Time) error {
	_, err := db.conn.Exec(
		`INSERT INTO metadata (key, value, updated_at)
		VALUES (?, ?, datetime('now'))
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		lastCheckKey, t.UTC().Format(time.RFC3339),
	)
	return err
}
