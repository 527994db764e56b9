package database

import "time"

// Course represents an enrolled course.
type Course struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Announcement represents a forum post tracked by the store.
// Date is the portal's displayed date, kept as opaque text; FirstSeen is
// assigned by the store at insertion and is the only timestamp used for
// notification windowing.
type Announcement struct {
	ID        int64
	CourseID  string
	Title     string
	URL       string
	Preview   string
	Author    string
	Date      string
	FirstSeen time.Time
	Notified  bool
}

// Stats contains aggregate database statistics.
type Stats struct {
	TotalCourses       int
	TotalAnnouncements int
	Unnotified         int
	CoursesWithNew     int
}
