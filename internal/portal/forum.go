package portal

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"elearn-monitor/internal/database"
)

// announcementKeywords mark a forum link as the course's announcement forum.
// Includes the Malay terms used by the portal.
var announcementKeywords = []string{
	"announcement", "announcements", "news", "news forum",
	"pengumuman", "berita", "pemberitahuan",
}

// ListAnnouncements scrapes the announcement forum of a course. Returns nil
// without error when the course has no announcement forum; that is normal.
func (c *Client) ListAnnouncements(ctx context.Context, course database.Course) ([]database.Announcement, error) {
	if err := c.EnsureLoggedIn(ctx); err != nil {
		return nil, fmt.Errorf("cannot check course: %w", err)
	}

	coursePage, _, err := c.get(ctx, course.URL)
	if err != nil {
		return nil, fmt.Errorf("fetching course page: %w", err)
	}

	forumURL := findAnnouncementForum(coursePage, c.baseURL)
	if forumURL == "" {
		log.Printf("no announcement forum found for %s", course.Name)
		return nil, nil
	}

	forumPage, _, err := c.get(ctx, forumURL)
	if err != nil {
		return nil, fmt.Errorf("fetching forum page: %w", err)
	}

	announcements, err := parseAnnouncements(forumPage, c.baseURL)
	if err != nil {
		return nil, err
	}

	// Prefer the forum's RSS feed when the page advertises one: structured
	// data beats markup heuristics.
	if feedURL := findFeedURL(forumPage, c.baseURL); feedURL != "" {
		if fromFeed := c.announcementsFromFeed(ctx, feedURL); len(fromFeed) >= len(announcements) {
			return fromFeed, nil
		}
	}

	return announcements, nil
}

// findAnnouncementForum locates the announcement forum link in a course page.
// Passes: link text keyword match, parent-container keyword match, then the
// first forum link as a last resort.
func findAnnouncementForum(html, baseURL string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	forumLinks := doc.Find(`a[href*="/mod/forum/view.php?id="]`)
	if forumLinks.Length() == 0 {
		return ""
	}

	var match string
	forumLinks.EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if hasAnnouncementKeyword(sel.Text()) {
			match = sel.AttrOr("href", "")
			return false
		}
		return true
	})

	if match == "" {
		forumLinks.EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			parent := sel.Closest("div, li")
			if parent.Length() > 0 && hasAnnouncementKeyword(parent.Text()) {
				match = sel.AttrOr("href", "")
				return false
			}
			return true
		})
	}

	if match == "" {
		match = forumLinks.First().AttrOr("href", "")
	}
	if match == "" {
		return ""
	}
	return joinURL(baseURL, match)
}

func hasAnnouncementKeyword(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range announcementKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// parseAnnouncements extracts discussion posts from a forum page. Falls
// through three strategies, from the most specific Moodle markup to bare
// discussion links.
func parseAnnouncements(html, baseURL string) ([]database.Announcement, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parsing forum page: %w", err)
	}

	var announcements []database.Announcement
	seen := make(map[string]struct{})

	add := func(link *goquery.Selection) {
		title := strings.TrimSpace(link.Text())
		href := link.AttrOr("href", "")
		if title == "" || href == "" {
			return
		}
		full := joinURL(baseURL, href)
		if _, dup := seen[full]; dup {
			return
		}
		seen[full] = struct{}{}

		a := database.Announcement{Title: title, URL: full}
		fillDiscussionMeta(link, &a)
		announcements = append(announcements, a)
	}

	doc.Find(`a[class*="discussionname"]`).Each(func(_ int, sel *goquery.Selection) {
		add(sel)
	})

	if len(announcements) == 0 {
		doc.Find(`tr[class*="discussion"]`).Each(func(_ int, row *goquery.Selection) {
			link := row.Find(`a[href*="/mod/forum/discuss.php"]`).First()
			if link.Length() > 0 {
				add(link)
			}
		})
	}

	if len(announcements) == 0 {
		doc.Find(`a[href*="/mod/forum/discuss.php?d="]`).Each(func(_ int, sel *goquery.Selection) {
			add(sel)
		})
	}

	return announcements, nil
}

// fillDiscussionMeta pulls author, date, and preview from the markup around
// a discussion link. The date stays exactly as displayed; it is never parsed.
func fillDiscussionMeta(link *goquery.Selection, a *database.Announcement) {
	parent := link.Closest("tr")
	if parent.Length() == 0 {
		parent = link.Closest(`div[class*="discussion"], div[class*="forum"]`)
	}
	if parent.Length() == 0 {
		return
	}

	if author := parent.Find(`a[href*="/user/view.php"]`).First(); author.Length() > 0 {
		a.Author = strings.TrimSpace(author.Text())
	}

	if t := parent.Find("time").First(); t.Length() > 0 {
		a.Date = strings.TrimSpace(t.Text())
	} else if span := parent.Find(`span[class*="date"], span[class*="time"], span[class*="posted"]`).First(); span.Length() > 0 {
		a.Date = strings.TrimSpace(span.Text())
	}

	if p := parent.Find(`div[class*="content"], div[class*="excerpt"], div[class*="summary"], div[class*="shortpost"]`).First(); p.Length() > 0 {
		a.Preview = truncate(strings.TrimSpace(p.Text()), 300)
	}
}

// findFeedURL looks for an RSS feed advertised on a forum page.
func findFeedURL(html, baseURL string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	if href, ok := doc.Find(`link[type="application/rss+xml"]`).First().Attr("href"); ok {
		return joinURL(baseURL, href)
	}
	if href, ok := doc.Find(`a[href*="/rss/file.php"]`).First().Attr("href"); ok {
		return joinURL(baseURL, href)
	}
	return ""
}

// announcementsFromFeed fetches and parses a forum RSS feed using the
// authenticated session. Any failure degrades to the scraped results.
func (c *Client) announcementsFromFeed(ctx context.Context, feedURL string) []database.Announcement {
	body, _, err := c.get(ctx, feedURL)
	if err != nil {
		log.Printf("forum feed fetch failed, using scraped posts: %v", err)
		return nil
	}

	feed, err := gofeed.NewParser().ParseString(body)
	if err != nil {
		log.Printf("forum feed parse failed, using scraped posts: %v", err)
		return nil
	}

	var announcements []database.Announcement
	for _, item := range feed.Items {
		if item.Link == "" || item.Title == "" {
			continue
		}
		a := database.Announcement{
			Title:   strings.TrimSpace(item.Title),
			URL:     item.Link,
			Preview: truncate(strings.TrimSpace(item.Description), 300),
		}
		if item.Author != nil {
			a.Author = item.Author.Name
		}
		if item.Published != "" {
			a.Date = item.Published
		}
		announcements = append(announcements, a)
	}
	return announcements
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
