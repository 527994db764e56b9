package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// FilterNew returns the candidates whose URL has never been recorded for the
// given course. Pure read; the store is not modified.
func (db *DB) FilterNew(courseID string, candidates []Announcement) ([]Announcement, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	rows, err := db.conn.Query(
		"SELECT url FROM announcements WHERE course_id = ?", courseID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	existing := make(map[string]struct{})
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		existing[u] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var fresh []Announcement
	for _, a := range candidates {
		if _, seen := existing[a.URL]; !seen {
			fresh = append(fresh, a)
		}
	}
	return fresh, nil
}

// InsertAnnouncements records announcements for a course. first_seen is
// assigned here, never by the caller, so it reflects local detection time
// regardless of the portal's displayed date. A URL that already exists is a
// no-op, not an error; the unique constraint makes concurrent duplicate
// scrapes safe. The batch is atomic. Returns the number actually inserted.
func (db *DB) InsertAnnouncements(courseID string, announcements []Announcement) (int, error) {
	if len(announcements) == 0 {
		return 0, nil
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin insert: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	inserted := 0
	for _, a := range announcements {
		res, err := tx.Exec(
			`INSERT OR IGNORE INTO announcements
			(course_id, title, url, preview, author, date, first_seen, notified)
			VALUES (?, ?, ?, ?, ?, ?, ?, 0)`,
			courseID, a.Title, a.URL, a.Preview, a.Author, a.Date, now,
		)
		if err != nil {
			return 0, fmt.Errorf("inserting announcement %s: %w", a.URL, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return inserted, nil
}

// MarkNotified sets notified=1 for the given URLs scoped to a course.
// URLs not present are silently skipped.
func (db *DB) MarkNotified(courseID string, urls []string) error {
	if len(urls) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(urls)), ",")
	args := make([]any, 0, len(urls)+1)
	args = append(args, courseID)
	for _, u := range urls {
		args = append(args, u)
	}

	_, err := db.conn.Exec(
		"UPDATE announcements SET notified = 1 WHERE course_id = ? AND url IN ("+placeholders+")",
		args...,
	)
	return err
}

// RecentUnnotified returns unnotified announcements for a course first seen
// at or after the given time, newest first. This is the sole basis for what
// gets emailed: an announcement detected cycles ago whose notification never
// succeeded stays eligible until sent.
func (db *DB) RecentUnnotified(courseID string, since time.Time) ([]Announcement, error) {
	rows, err := db.conn.Query(
		`SELECT id, course_id, title, url, preview, author, date, first_seen, notified
		FROM announcements
		WHERE course_id = ? AND notified = 0 AND first_seen >= ?
		ORDER BY first_seen DESC, id DESC`,
		courseID, since.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAnnouncements(rows)
}

// PurgeOlderThan deletes notified announcements first seen more than the
// given number of days ago. Unnotified rows are never purged regardless of
// age so a pending notification is not silently lost. Returns rows deleted.
func (db *DB) PurgeOlderThan(days int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -days).Format(time.RFC3339)
	res, err := db.conn.Exec(
		"DELETE FROM announcements WHERE notified = 1 AND first_seen < ?", cutoff,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// GetStats returns aggregate counts for status reporting.
func (db *DB) GetStats() (*Stats, error) {
	s := &Stats{}
	queries := []struct {
		sql  string
		dest *int
	}{
		{"SELECT COUNT(*) FROM courses", &s.TotalCourses},
		{"SELECT COUNT(*) FROM announcements", &s.TotalAnnouncements},
		{"SELECT COUNT(*) FROM announcements WHERE notified = 0", &s.Unnotified},
		{"SELECT COUNT(DISTINCT course_id) FROM announcements WHERE notified = 0", &s.CoursesWithNew},
	}
	for _, q := range queries {
		if err := db.conn.QueryRow(q.sql).Scan(q.dest); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func scanAnnouncements(rows *sql.Rows) ([]Announcement, error) {
	var announcements []Announcement
	for rows.Next() {
		var a Announcement
		var firstSeen string
		var notified int
		if err := rows.Scan(&a.ID, &a.CourseID, &a.Title, &a.URL, &a.Preview,
			&a.Author, &a.Date, &firstSeen, &notified); err != nil {
			return nil, err
		}
		if t, err := time.Parse(time.RFC3339, firstSeen); err == nil {
			a.FirstSeen = t
		}
		a.Notified = notified != 0
		announcements = append(announcements, a)
	}
	return announcements, rows.Err()
}
