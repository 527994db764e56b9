package portal

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

const maxContentRunes = 2000

// FullContent fetches a discussion page and extracts the first post's body.
// Used only for newly detected announcements; callers fall back to the
// short preview when this fails.
func (c *Client) FullContent(ctx context.Context, announcementURL string) (string, error) {
	if err := c.EnsureLoggedIn(ctx); err != nil {
		return "", fmt.Errorf("cannot fetch content: %w", err)
	}

	page, _, err := c.get(ctx, announcementURL)
	if err != nil {
		return "", fmt.Errorf("fetching discussion page: %w", err)
	}

	return extractContent(page, announcementURL), nil
}

// extractContent pulls the post body out of discussion-page HTML. A Moodle
// post-container pass runs first; general readability extraction is the
// fallback for unrecognized markup.
func extractContent(html, pageURL string) string {
	if text := extractForumPost(html); text != "" {
		return text
	}

	parsed, _ := url.Parse(pageURL)
	article, err := readability.FromReader(strings.NewReader(html), parsed)
	if err != nil {
		return ""
	}
	text := strings.TrimSpace(article.TextContent)
	if len(text) < 30 {
		return ""
	}
	return truncate(collapseLines(text), maxContentRunes)
}

func extractForumPost(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	var result string
	doc.Find(`div[class*="forumpost"], article[class*="forum-post"], div[class*="firstpost"]`).
		EachWithBreak(func(_ int, post *goquery.Selection) bool {
			body := post.Find(`div[class*="post-content"], div[class*="post_content"], div[class*="no-overflow"], div[class*="message"]`).First()
			if body.Length() == 0 {
				body = post.Find(`div[class*="content"]`).First()
			}
			if body.Length() == 0 {
				return true
			}

			// Strip replies, attachment lists, and controls nested in the body.
			body.Find(`div[class*="reply"], div[class*="attachments"], div[class*="commands"], div[class*="rating"], span[class*="author"], script, style`).Remove()

			text := collapseLines(body.Text())
			if len(text) > 30 {
				result = truncate(text, maxContentRunes)
				return false
			}
			return true
		})
	return result
}

// collapseLines trims every line and drops empty ones.
func collapseLines(s string) string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return strings.Join(lines, "\n")
}
