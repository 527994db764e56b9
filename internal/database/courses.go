package database

import (
	"fmt"
	"time"
)

// UpsertCourses inserts or replaces courses by id and stamps last_checked.
// The whole batch is written in one transaction.
func (db *DB) UpsertCourses(courses []Course) error {
	if len(courses) == 0 {
		return nil
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, c := range courses {
		if _, err := tx.Exec(
			`INSERT INTO courses (id, name, url, last_checked) VALUES (?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET name = excluded.name, url = excluded.url,
				last_checked = excluded.last_checked`,
			c.ID, c.Name, c.URL, now,
		); err != nil {
			return fmt.Errorf("upserting course %s: %w", c.ID, err)
		}
	}

	return tx.Commit()
}

// GetCourses returns all known courses ordered by name.
func (db *DB) GetCourses() ([]Course, error) {
	rows, err := db.conn.Query("SELECT id, name, url FROM courses ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var courses []Course
	for rows.Next() {
		var c Course
		if err := rows.Scan(&c.ID, &c.Name, &c.URL); err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}
