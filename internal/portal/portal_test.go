package portal

import (
	"strings"
	"testing"
)

const dashboardHTML = `
<html><body>
<div class="coursebox">
  <a href="/course/view.php?id=101">Computer Networks</a>
</div>
<div class="card-body">
  <a href="https://elearning.example.edu/course/view.php?id=102" title="Databases"><span></span></a>
</div>
<ul>
  <li class="type_course"><a href="/course/view.php?id=101">Computer Networks</a></li>
</ul>
<a href="/mod/forum/view.php?id=55">Not a course</a>
</body></html>`

func TestParseCourses(t *testing.T) {
	courses, err := parseCourses(dashboardHTML, "https://elearning.example.edu")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(courses) != 2 {
		t.Fatalf("expected 2 deduplicated courses, got %d", len(courses))
	}

	if courses[0].ID != "101" || courses[0].Name != "Computer Networks" {
		t.Errorf("unexpected first course: %+v", courses[0])
	}
	if courses[0].URL != "https://elearning.example.edu/course/view.php?id=101" {
		t.Errorf("relative href not resolved: %s", courses[0].URL)
	}

	// Empty link text falls back to the title attribute.
	if courses[1].ID != "102" || courses[1].Name != "Databases" {
		t.Errorf("expected title-attribute fallback, got %+v", courses[1])
	}
}

func TestParseCoursesEmptyPage(t *testing.T) {
	courses, err := parseCourses("<html><body>nothing here</body></html>", "https://x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(courses) != 0 {
		t.Errorf("expected no courses, got %d", len(courses))
	}
}

func TestFindAnnouncementForumByLinkText(t *testing.T) {
	html := `
<a href="/mod/forum/view.php?id=1">General discussion</a>
<a href="/mod/forum/view.php?id=2">Announcements</a>`

	got := findAnnouncementForum(html, "https://x")
	if got != "https://x/mod/forum/view.php?id=2" {
		t.Errorf("expected announcements forum, got %s", got)
	}
}

func TestFindAnnouncementForumMalayKeyword(t *testing.T) {
	html := `<a href="/mod/forum/view.php?id=7">Pengumuman Kursus</a>`
	got := findAnnouncementForum(html, "https://x")
	if got != "https://x/mod/forum/view.php?id=7" {
		t.Errorf("expected pengumuman forum, got %s", got)
	}
}

func TestFindAnnouncementForumViaParent(t *testing.T) {
	html := `
<div>News and announcements
  <a href="/mod/forum/view.php?id=3">Forum</a>
</div>`

	got := findAnnouncementForum(html, "https://x")
	if got != "https://x/mod/forum/view.php?id=3" {
		t.Errorf("expected parent-keyword match, got %s", got)
	}
}

func TestFindAnnouncementForumFallbackFirst(t *testing.T) {
	html := `
<a href="/mod/forum/view.php?id=4">Coursework questions</a>
<a href="/mod/forum/view.php?id=5">Random chat</a>`

	got := findAnnouncementForum(html, "https://x")
	if got != "https://x/mod/forum/view.php?id=4" {
		t.Errorf("expected first forum fallback, got %s", got)
	}
}

func TestFindAnnouncementForumNone(t *testing.T) {
	if got := findAnnouncementForum("<html><body></body></html>", "https://x"); got != "" {
		t.Errorf("expected empty result, got %s", got)
	}
}

const forumHTML = `
<table>
<tr class="discussion">
  <td><a class="discussionname" href="/mod/forum/discuss.php?d=10">Midterm rescheduled</a></td>
  <td><a href="/user/view.php?id=9">Dr. Tan</a></td>
  <td><time>Mon, 12 May 2026</time></td>
  <td><div class="shortpost">The midterm moves to Friday.</div></td>
</tr>
<tr class="discussion">
  <td><a class="discussionname" href="/mod/forum/discuss.php?d=11">Lab 3 posted</a></td>
  <td><a href="/user/view.php?id=9">Dr. Tan</a></td>
  <td><span class="date">Tue, 13 May 2026</span></td>
</tr>
</table>`

func TestParseAnnouncements(t *testing.T) {
	anns, err := parseAnnouncements(forumHTML, "https://x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(anns) != 2 {
		t.Fatalf("expected 2 announcements, got %d", len(anns))
	}

	first := anns[0]
	if first.Title != "Midterm rescheduled" {
		t.Errorf("unexpected title: %q", first.Title)
	}
	if first.URL != "https://x/mod/forum/discuss.php?d=10" {
		t.Errorf("unexpected url: %q", first.URL)
	}
	if first.Author != "Dr. Tan" {
		t.Errorf("unexpected author: %q", first.Author)
	}
	if first.Date != "Mon, 12 May 2026" {
		t.Errorf("unexpected date: %q", first.Date)
	}
	if !strings.Contains(first.Preview, "midterm moves") {
		t.Errorf("unexpected preview: %q", first.Preview)
	}

	if anns[1].Date != "Tue, 13 May 2026" {
		t.Errorf("expected span date fallback, got %q", anns[1].Date)
	}
}

func TestParseAnnouncementsBareLinks(t *testing.T) {
	html := `
<p><a href="/mod/forum/discuss.php?d=20">Holiday notice</a></p>
<p><a href="/mod/forum/discuss.php?d=20">Holiday notice</a></p>`

	anns, err := parseAnnouncements(html, "https://x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(anns) != 1 {
		t.Fatalf("expected deduplication to 1, got %d", len(anns))
	}
	if anns[0].Title != "Holiday notice" {
		t.Errorf("unexpected title: %q", anns[0].Title)
	}
}

func TestFindFeedURL(t *testing.T) {
	html := `<head><link rel="alternate" type="application/rss+xml" href="/rss/file.php/1/abc/mod_forum/2/rss.xml"></head>`
	got := findFeedURL(html, "https://x")
	if got != "https://x/rss/file.php/1/abc/mod_forum/2/rss.xml" {
		t.Errorf("unexpected feed url: %s", got)
	}

	if got := findFeedURL("<html></html>", "https://x"); got != "" {
		t.Errorf("expected no feed url, got %s", got)
	}
}

func TestExtractForumPost(t *testing.T) {
	html := `
<div class="forumpost">
  <div class="post-content-container no-overflow">
    <p>Dear students, the final exam venue has changed to Dewan Utama.</p>
    <p>Please arrive thirty minutes early and bring your student card.</p>
    <div class="commands"><a href="#">Reply</a></div>
  </div>
</div>`

	text := extractForumPost(html)
	if !strings.Contains(text, "Dewan Utama") {
		t.Errorf("expected post body, got %q", text)
	}
	if strings.Contains(text, "Reply") {
		t.Errorf("expected controls stripped, got %q", text)
	}
}

func TestExtractForumPostTooShort(t *testing.T) {
	html := `<div class="forumpost"><div class="content">hi</div></div>`
	if text := extractForumPost(html); text != "" {
		t.Errorf("expected short content rejected, got %q", text)
	}
}

func TestLoginToken(t *testing.T) {
	html := `<form><input type="hidden" name="logintoken" value="abc123"></form>`
	if got := loginToken(html); got != "abc123" {
		t.Errorf("expected token abc123, got %q", got)
	}
	if got := loginToken("<form></form>"); got != "" {
		t.Errorf("expected empty token, got %q", got)
	}
}

func TestJoinURL(t *testing.T) {
	cases := []struct {
		base, href, want string
	}{
		{"https://x/sidang2526", "/mod/forum/view.php?id=1", "https://x/mod/forum/view.php?id=1"},
		{"https://x", "mod/forum/view.php?id=1", "https://x/mod/forum/view.php?id=1"},
		{"https://x", "https://y/abs", "https://y/abs"},
	}
	for _, tc := range cases {
		if got := joinURL(tc.base, tc.href); got != tc.want {
			t.Errorf("joinURL(%q, %q) = %q, want %q", tc.base, tc.href, got, tc.want)
		}
	}
}
