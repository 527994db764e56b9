package portal

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"elearn-monitor/internal/database"
)

var courseIDPattern = regexp.MustCompile(`[?&]id=(\d+)`)

// ListCourses fetches the dashboard and extracts the enrolled courses.
func (c *Client) ListCourses(ctx context.Context) ([]database.Course, error) {
	if err := c.EnsureLoggedIn(ctx); err != nil {
		return nil, fmt.Errorf("cannot list courses: %w", err)
	}

	page, _, err := c.get(ctx, c.baseURL+"/my/")
	if err != nil {
		return nil, fmt.Errorf("fetching dashboard: %w", err)
	}

	return parseCourses(page, c.baseURL)
}

// parseCourses extracts courses from dashboard HTML. Every anchor pointing
// at /course/view.php carries the course id; nested card and nav markup all
// reduce to the same links, deduplicated by id.
func parseCourses(html, baseURL string) ([]database.Course, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parsing dashboard: %w", err)
	}

	var courses []database.Course
	seen := make(map[string]struct{})

	doc.Find(`a[href*="/course/view.php?id="]`).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		m := courseIDPattern.FindStringSubmatch(href)
		if m == nil {
			return
		}
		id := m[1]
		if _, dup := seen[id]; dup {
			return
		}

		name := strings.TrimSpace(sel.Text())
		if name == "" {
			name = strings.TrimSpace(sel.AttrOr("title", ""))
		}
		if name == "" {
			name = "Course " + id
		}

		seen[id] = struct{}{}
		courses = append(courses, database.Course{
			ID:   id,
			Name: name,
			URL:  joinURL(baseURL, href),
		})
	})

	return courses, nil
}

// joinURL resolves href against base, tolerating absolute hrefs.
func joinURL(base, href string) string {
	b, err := url.Parse(strings.TrimRight(base, "/") + "/")
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return b.ResolveReference(ref).String()
}
