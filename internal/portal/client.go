// Package portal talks to the university e-learning portal: form login,
// course discovery, and announcement-forum scraping. Everything here is
// best-effort I/O against markup the portal may change at any time; callers
// treat empty or partial results as normal.
package portal

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/codeGROOVE-dev/retry"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

// Client is an authenticated HTTP client for the portal.
type Client struct {
	baseURL  string
	username string
	password string
	http     *http.Client
	loggedIn bool
}

// NewClient creates a portal client. baseURL is the Moodle instance root.
func NewClient(baseURL, username, password string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	jar, _ := cookiejar.New(nil)
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		username: username,
		password: password,
		http: &http.Client{
			Timeout: timeout,
			Jar:     jar,
		},
	}
}

// BaseURL returns the configured portal root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Login performs a fresh form login against the portal. Sessions are never
// persisted across runs.
func (c *Client) Login(ctx context.Context) error {
	loginURL := c.baseURL + "/login/index.php"

	page, _, err := c.get(ctx, loginURL)
	if err != nil {
		return fmt.Errorf("fetching login page: %w", err)
	}

	token := loginToken(page)

	form := url.Values{
		"username": {c.username},
		"password": {c.password},
		"anchor":   {""},
	}
	if token != "" {
		form.Set("logintoken", token)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, loginURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("creating login request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("submitting login: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading login response: %w", err)
	}

	// Moodle bounces a failed login back to the login form.
	final := resp.Request.URL.Path
	if strings.Contains(final, "/login/") || strings.Contains(string(body), "loginerrors") {
		return fmt.Errorf("authentication rejected for %s", c.username)
	}

	c.loggedIn = true
	log.Printf("authenticated with portal as %s", c.username)
	return nil
}

// SessionValid probes the dashboard to see if the current session is alive.
func (c *Client) SessionValid(ctx context.Context) bool {
	page, finalURL, err := c.get(ctx, c.baseURL+"/my/")
	if err != nil {
		return false
	}
	if strings.Contains(finalURL, "/login/") {
		return false
	}
	lower := strings.ToLower(page)
	return strings.Contains(lower, "dashboard") || strings.Contains(lower, "my courses")
}

// EnsureLoggedIn re-authenticates if the session has expired or no login
// has happened yet this run.
func (c *Client) EnsureLoggedIn(ctx context.Context) error {
	if c.loggedIn && c.SessionValid(ctx) {
		return nil
	}
	return c.Login(ctx)
}

// get fetches a page with retries and returns the body and the final URL
// after redirects.
func (c *Client) get(ctx context.Context, pageURL string) (body, finalURL string, err error) {
	err = retry.Do(
		func() error {
			req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, http.NoBody)
			if reqErr != nil {
				return retry.Unrecoverable(reqErr)
			}
			req.Header.Set("User-Agent", userAgent)

			resp, doErr := c.http.Do(req)
			if doErr != nil {
				return doErr
			}
			defer resp.Body.Close()

			if resp.StatusCode >= 500 {
				return fmt.Errorf("HTTP %d from %s", resp.StatusCode, pageURL)
			}
			if resp.StatusCode >= 400 {
				return retry.Unrecoverable(fmt.Errorf("HTTP %d from %s", resp.StatusCode, pageURL))
			}

			data, readErr := io.ReadAll(resp.Body)
			if readErr != nil {
				return readErr
			}
			body = string(data)
			finalURL = resp.Request.URL.String()
			return nil
		},
		retry.Attempts(3),
		retry.Delay(2*time.Second),
		retry.MaxJitter(time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			log.Printf("retrying fetch of %s (attempt %d): %v", pageURL, n+1, err)
		}),
	)
	if err != nil {
		return "", "", err
	}
	return body, finalURL, nil
}

// loginToken extracts the hidden logintoken field from a login page.
// Older portals have no token; an empty result is fine.
func loginToken(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	token, _ := doc.Find(`input[name="logintoken"]`).First().Attr("value")
	return token
}

// resolveURL joins a possibly relative href against the portal base.
func (c *Client) resolveURL(href string) string {
	base, err := url.Parse(c.baseURL + "/")
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
