package detect

import (
	"testing"
	"time"

	"elearn-monitor/internal/database"
)

// fakeStore records candidates and filters against a fixed seen set.
type fakeStore struct {
	seen map[string]bool
}

func (f *fakeStore) FilterNew(_ string, candidates []database.Announcement) ([]database.Announcement, error) {
	var fresh []database.Announcement
	for _, a := range candidates {
		if !f.seen[a.URL] {
			fresh = append(fresh, a)
		}
	}
	return fresh, nil
}

func TestFindNew(t *testing.T) {
	store := &fakeStore{seen: map[string]bool{"https://x/d=1": true}}

	scraped := []database.Announcement{
		{URL: "https://x/d=1", Title: "Old"},
		{URL: "https://x/d=2", Title: "New"},
	}
	fresh, err := FindNew(store, "101", scraped)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fresh) != 1 || fresh[0].URL != "https://x/d=2" {
		t.Errorf("expected only d=2 to be new, got %+v", fresh)
	}
}

func TestFindNewEmptyScrape(t *testing.T) {
	fresh, err := FindNew(&fakeStore{}, "101", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fresh != nil {
		t.Errorf("expected nil for empty scrape, got %+v", fresh)
	}
}

func TestWindowStartWithWatermark(t *testing.T) {
	watermark := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	start := WindowStart(&watermark, watermark.Add(30*time.Minute))

	// Buffer is 5 minutes: first_seen at T-4m is inside, T-6m is outside.
	inside := watermark.Add(-4 * time.Minute)
	outside := watermark.Add(-6 * time.Minute)

	if inside.Before(start) {
		t.Errorf("first_seen %v should be inside window starting %v", inside, start)
	}
	if !outside.Before(start) {
		t.Errorf("first_seen %v should be outside window starting %v", outside, start)
	}
}

func TestWindowStartFirstRun(t *testing.T) {
	cycleStart := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	start := WindowStart(nil, cycleStart)

	if want := cycleStart.Add(-60 * time.Minute); !start.Equal(want) {
		t.Fatalf("expected first-run window start %v, got %v", want, start)
	}

	included := cycleStart.Add(-30 * time.Minute)
	excluded := cycleStart.Add(-61 * time.Minute)
	if included.Before(start) {
		t.Errorf("first_seen 30m ago should be inside the first-run window")
	}
	if !excluded.Before(start) {
		t.Errorf("first_seen 61m ago should be outside the first-run window")
	}
}
