// Package detect decides which scraped announcements are new and which of
// the new ones still fall inside the notification window.
package detect

import (
	"time"

	"elearn-monitor/internal/database"
)

const (
	// watermarkBuffer is subtracted from the previous watermark so an
	// announcement first seen during the last cycle's processing is not
	// lost at the window boundary.
	watermarkBuffer = 5 * time.Minute

	// firstRunWindow bounds how far back the very first cycle notifies.
	// Older announcements are recorded as seen but never emailed, so a
	// first run against years of forum history does not flood anyone.
	firstRunWindow = 60 * time.Minute
)

// Store is the read-only slice of the announcement store the detector needs.
type Store interface {
	FilterNew(courseID string, candidates []database.Announcement) ([]database.Announcement, error)
}

// FindNew returns the scraped announcements the store has never recorded
// for the course. Identity is URL only: edits to an existing post do not
// make it new again.
func FindNew(store Store, courseID string, scraped []database.Announcement) ([]database.Announcement, error) {
	if len(scraped) == 0 {
		return nil, nil
	}
	return store.FilterNew(courseID, scraped)
}

// WindowStart computes the start of the notification window for a cycle.
// With a prior watermark the window opens watermarkBuffer before it; on a
// first run it opens firstRunWindow before the cycle start.
func WindowStart(watermark *time.Time, cycleStart time.Time) time.Time {
	if watermark != nil {
		return watermark.Add(-watermarkBuffer)
	}
	return cycleStart.Add(-firstRunWindow)
}
