// Package monitor drives one end-to-end check cycle: authenticate, list
// courses, and per course scrape, detect, persist, and notify.
package monitor

import (
	"context"
	"fmt"
	"log"
	"time"

	"elearn-monitor/internal/config"
	"elearn-monitor/internal/coursecache"
	"elearn-monitor/internal/database"
	"elearn-monitor/internal/detect"
)

// Authenticator establishes a portal session.
type Authenticator interface {
	EnsureLoggedIn(ctx context.Context) error
}

// CourseSource lists enrolled courses from the portal.
type CourseSource interface {
	ListCourses(ctx context.Context) ([]database.Course, error)
}

// AnnouncementSource scrapes a course's announcement forum.
type AnnouncementSource interface {
	ListAnnouncements(ctx context.Context, course database.Course) ([]database.Announcement, error)
	FullContent(ctx context.Context, announcementURL string) (string, error)
}

// Notifier delivers digests and error alerts.
type Notifier interface {
	SendDigest(ctx context.Context, courseName string, announcements []database.Announcement) error
	SendErrorAlert(ctx context.Context, message, detail string) error
}

// Store is the slice of the announcement store a check cycle needs.
// *database.DB satisfies it.
type Store interface {
	UpsertCourses(courses []database.Course) error
	FilterNew(courseID string, candidates []database.Announcement) ([]database.Announcement, error)
	InsertAnnouncements(courseID string, announcements []database.Announcement) (int, error)
	MarkNotified(courseID string, urls []string) error
	RecentUnnotified(courseID string, since time.Time) ([]database.Announcement, error)
	LastCheckTime() (*time.Time, error)
	SetLastCheckTime(t time.Time) error
	PurgeOlderThan(days int) (int64, error)
	GetStats() (*database.Stats, error)
}

// Stats aggregates the outcome of one check cycle.
type Stats struct {
	TotalCourses          int
	MonitoredCourses      int
	CoursesWithNew        int
	TotalNewAnnouncements int
	Success               bool
	Errors                []string
}

// Monitor orchestrates check cycles.
type Monitor struct {
	db       Store
	cache    *coursecache.Cache
	cfg      *config.MonitorStore
	auth     Authenticator
	courses  CourseSource
	scraper  AnnouncementSource
	notifier Notifier
}

// New creates a monitor. A single portal client typically serves as
// Authenticator, CourseSource, and AnnouncementSource.
func New(db Store, cache *coursecache.Cache, cfg *config.MonitorStore,
	auth Authenticator, courses CourseSource, scraper AnnouncementSource, notifier Notifier) *Monitor {
	return &Monitor{
		db:       db,
		cache:    cache,
		cfg:      cfg,
		auth:     auth,
		courses:  courses,
		scraper:  scraper,
		notifier: notifier,
	}
}

// RunCheck executes one full check cycle. It never panics on external
// failures: fatal steps flip Success, per-course problems land in Errors,
// and already-detected announcements are never dropped; worst case they
// stay unnotified and are retried next cycle.
func (m *Monitor) RunCheck(ctx context.Context) *Stats {
	cycleStart := time.Now()
	stats := &Stats{Success: true}

	// Config is re-read every cycle so runtime edits apply.
	cfg, err := m.cfg.Load()
	if err != nil {
		log.Printf("monitor config unreadable, using defaults: %v", err)
		cfg = config.DefaultMonitorConfig()
	}

	watermark, err := m.db.LastCheckTime()
	if err != nil {
		log.Printf("reading watermark: %v", err)
	}
	if watermark != nil {
		log.Printf("last check: %s (%.1f min ago)", watermark.Format(time.RFC3339),
			cycleStart.Sub(*watermark).Minutes())
	} else {
		log.Printf("first check: recording all announcements, notifying only recent ones")
	}

	// Step 1: authenticate. Fatal to the cycle, never to the process.
	if err := m.auth.EnsureLoggedIn(ctx); err != nil {
		msg := fmt.Sprintf("authentication failed: %v", err)
		log.Print(msg)
		stats.Success = false
		stats.Errors = append(stats.Errors, msg)
		if cfg.Notifications.SendErrorAlerts {
			if alertErr := m.notifier.SendErrorAlert(ctx, "Authentication failed", err.Error()); alertErr != nil {
				log.Printf("error alert failed: %v", alertErr)
			}
		}
		return stats
	}

	// Step 2: course list, cache-first.
	courses := m.fetchCourses(ctx, false)
	if len(courses) == 0 {
		log.Print("no courses found")
		stats.Success = false
		stats.Errors = append(stats.Errors, "no courses found")
		return stats
	}
	stats.TotalCourses = len(courses)

	// Step 3: config filter.
	var monitored []database.Course
	for _, course := range courses {
		if cfg.ShouldMonitor(course.ID) {
			monitored = append(monitored, course)
		}
	}
	stats.MonitoredCourses = len(monitored)
	if len(monitored) < len(courses) {
		log.Printf("monitoring %d of %d courses (filtered by config)", len(monitored), len(courses))
	}

	windowStart := detect.WindowStart(watermark, cycleStart)
	log.Printf("notifying for announcements first seen after %s", windowStart.Format(time.RFC3339))

	// Step 4: per course; one failure never aborts the others.
	failed := 0
	for _, course := range monitored {
		if err := m.checkCourse(ctx, course, cfg, windowStart, stats); err != nil {
			failed++
			msg := fmt.Sprintf("%s: %v", course.Name, err)
			log.Printf("course check failed: %s", msg)
			stats.Errors = append(stats.Errors, msg)
		}
	}
	if len(monitored) > 0 && failed == len(monitored) {
		stats.Success = false
	}

	// Step 5: finalize. The watermark records the cycle's start, not its
	// end, so the next window's math works from a stable instant.
	if err := m.db.SetLastCheckTime(cycleStart); err != nil {
		log.Printf("updating watermark: %v", err)
		stats.Errors = append(stats.Errors, fmt.Sprintf("updating watermark: %v", err))
	}
	if purged, err := m.db.PurgeOlderThan(cfg.DatabaseCleanupDays); err != nil {
		log.Printf("purging old announcements: %v", err)
	} else if purged > 0 {
		log.Printf("purged %d old announcement(s)", purged)
	}

	m.logSummary(stats)
	return stats
}

// checkCourse scrapes one course, persists what is new, and notifies for
// the in-window unnotified backlog.
func (m *Monitor) checkCourse(ctx context.Context, course database.Course,
	cfg *config.MonitorConfig, windowStart time.Time, stats *Stats) error {
	log.Printf("checking %s", course.Name)

	scraped, err := m.scraper.ListAnnouncements(ctx, course)
	if err != nil {
		return fmt.Errorf("scraping announcements: %w", err)
	}

	fresh, err := detect.FindNew(m.db, course.ID, scraped)
	if err != nil {
		return fmt.Errorf("detecting new announcements: %w", err)
	}

	if len(fresh) > 0 {
		log.Printf("  %d new announcement(s)", len(fresh))

		// Full content is fetched only for newly found posts; already-seen
		// ones are never re-fetched. A failed fetch keeps the preview.
		if cfg.Notifications.FetchFullContent {
			for i := range fresh {
				content, err := m.scraper.FullContent(ctx, fresh[i].URL)
				if err != nil {
					log.Printf("  full content unavailable for %s: %v", fresh[i].Title, err)
					continue
				}
				if len(content) > len(fresh[i].Preview) {
					fresh[i].Preview = content
				}
			}
		}

		if _, err := m.db.InsertAnnouncements(course.ID, fresh); err != nil {
			return fmt.Errorf("persisting announcements: %w", err)
		}

		// Counted only once recorded.
		stats.CoursesWithNew++
		stats.TotalNewAnnouncements += len(fresh)
	}

	// The eligible set comes from the store, not from this cycle's scrape:
	// it carries forward anything whose notification failed earlier.
	pending, err := m.db.RecentUnnotified(course.ID, windowStart)
	if err != nil {
		return fmt.Errorf("loading notification backlog: %w", err)
	}
	if len(pending) == 0 || !cfg.Notifications.SendEmail {
		return nil
	}

	log.Printf("  %d announcement(s) within notification window", len(pending))
	if err := m.notifier.SendDigest(ctx, course.Name, pending); err != nil {
		// Rows stay unnotified and re-enter the eligible set next cycle.
		return fmt.Errorf("sending digest: %w", err)
	}

	urls := make([]string, len(pending))
	for i, a := range pending {
		urls[i] = a.URL
	}
	return m.db.MarkNotified(course.ID, urls)
}

// fetchCourses returns the course list, preferring a fresh cache, and falls
// back to any cached copy when the portal fetch fails.
func (m *Monitor) fetchCourses(ctx context.Context, forceRefresh bool) []database.Course {
	if !forceRefresh {
		if cached := m.cache.LoadFresh(coursecache.DefaultMaxAge); len(cached) > 0 {
			log.Printf("using cached course list (%d course(s))", len(cached))
			return cached
		}
	}

	courses, err := m.courses.ListCourses(ctx)
	if err != nil || len(courses) == 0 {
		if err != nil {
			log.Printf("fetching courses failed: %v", err)
		}
		if cached := m.cache.Load(); len(cached) > 0 {
			log.Printf("falling back to cached course list (%d course(s))", len(cached))
			return cached
		}
		return nil
	}

	if err := m.cache.Save(courses); err != nil {
		log.Printf("saving course cache: %v", err)
	}
	if err := m.db.UpsertCourses(courses); err != nil {
		log.Printf("upserting courses: %v", err)
	}
	return courses
}

// RefreshCourses forces a course-list refetch, bypassing the cache.
func (m *Monitor) RefreshCourses(ctx context.Context) ([]database.Course, error) {
	if err := m.auth.EnsureLoggedIn(ctx); err != nil {
		return nil, fmt.Errorf("cannot refresh courses: %w", err)
	}
	courses := m.fetchCourses(ctx, true)
	if len(courses) == 0 {
		return nil, fmt.Errorf("no courses found")
	}
	return courses, nil
}

func (m *Monitor) logSummary(stats *Stats) {
	log.Printf("check complete: %d courses, %d monitored, %d with new, %d new announcement(s), %d error(s)",
		stats.TotalCourses, stats.MonitoredCourses, stats.CoursesWithNew,
		stats.TotalNewAnnouncements, len(stats.Errors))

	if dbStats, err := m.db.GetStats(); err == nil {
		log.Printf("store: %d course(s), %d announcement(s), %d unnotified",
			dbStats.TotalCourses, dbStats.TotalAnnouncements, dbStats.Unnotified)
	}
}
