package email

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/yuin/goldmark"

	"elearn-monitor/internal/database"
)

var md = goldmark.New()

// digestSubject follows the one-vs-many rule: a single announcement leads
// with its own title, a batch leads with the count.
func digestSubject(courseName string, announcements []database.Announcement) string {
	if len(announcements) == 1 {
		title := announcements[0].Title
		if runes := []rune(title); len(runes) > 50 {
			title = string(runes[:50])
		}
		return "New: " + title
	}
	return fmt.Sprintf("%d new announcements - %s", len(announcements), courseName)
}

// digestText builds the plain-text body as markdown. The same string feeds
// the HTML part through goldmark, so the two parts never drift apart.
func digestText(courseName string, announcements []database.Announcement) string {
	var b strings.Builder

	plural := ""
	if len(announcements) > 1 {
		plural = "s"
	}
	fmt.Fprintf(&b, "# New announcement%s in %s\n\n", plural, courseName)

	for i, a := range announcements {
		fmt.Fprintf(&b, "## %d. %s\n\n", i+1, a.Title)
		fmt.Fprintf(&b, "Link: %s\n\n", a.URL)
		if a.Author != "" {
			fmt.Fprintf(&b, "Author: %s\n\n", a.Author)
		}
		if a.Date != "" {
			fmt.Fprintf(&b, "Posted: %s\n\n", a.Date)
		}
		if a.Preview != "" {
			fmt.Fprintf(&b, "%s\n\n", a.Preview)
		}
		if i < len(announcements)-1 {
			b.WriteString("---\n\n")
		}
	}

	fmt.Fprintf(&b, "Checked at %s by elearn-monitor\n", time.Now().Format("2006-01-02 15:04:05"))
	return b.String()
}

func alertText(message, detail string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Monitor alert\n\n%s\n\n", message)
	if detail != "" {
		fmt.Fprintf(&b, "```\n%s\n```\n\n", detail)
	}
	fmt.Fprintf(&b, "Reported at %s by elearn-monitor\n", time.Now().Format("2006-01-02 15:04:05"))
	return b.String()
}

// renderHTML converts the markdown body into a minimal HTML document.
func renderHTML(markdown string) (string, error) {
	var body bytes.Buffer
	if err := md.Convert([]byte(markdown), &body); err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<style>\n")
	b.WriteString("body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 650px; margin: 0 auto; padding: 20px; }\n")
	b.WriteString("h1 { font-size: 1.4em; border-bottom: 2px solid #667eea; padding-bottom: 8px; }\n")
	b.WriteString("h2 { font-size: 1.1em; color: #444; }\n")
	b.WriteString("a { color: #667eea; }\n")
	b.WriteString("hr { border: none; border-top: 1px solid #ddd; margin: 20px 0; }\n")
	b.WriteString("pre { background: #f5f5f5; padding: 12px; border-radius: 6px; overflow-x: auto; }\n")
	b.WriteString("</style>\n</head>\n<body>\n")
	b.Write(body.Bytes())
	b.WriteString("</body>\n</html>\n")
	return b.String(), nil
}
