// Package coursecache keeps a short-lived JSON snapshot of the enrolled
// course list so a check cycle does not have to refetch the dashboard when
// a recent copy exists.
package coursecache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"elearn-monitor/internal/database"
)

// DefaultMaxAge is how long a cached course list is considered fresh.
const DefaultMaxAge = 24 * time.Hour

type cacheFile struct {
	LastUpdated time.Time         `json:"last_updated"`
	Courses     []database.Course `json:"courses"`
}

// Cache is a file-backed course list cache.
type Cache struct {
	path string
}

// New creates a cache backed by the given file path.
func New(path string) *Cache {
	return &Cache{path: path}
}

// Save writes the course list with the current time as last_updated.
func (c *Cache) Save(courses []database.Course) error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	data, err := json.MarshalIndent(cacheFile{
		LastUpdated: time.Now().UTC(),
		Courses:     courses,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding course cache: %w", err)
	}
	return os.WriteFile(c.path, append(data, '\n'), 0o644)
}

// Load returns the cached courses regardless of age, or nil if the cache
// is missing or unreadable. A bad cache is a miss, never an error.
func (c *Cache) Load() []database.Course {
	f := c.read()
	if f == nil {
		return nil
	}
	return f.Courses
}

// LoadFresh returns the cached courses when the cache was updated within
// maxAge, and nil when it is missing, unreadable, or stale. One read
// answers both the freshness check and the load.
func (c *Cache) LoadFresh(maxAge time.Duration) []database.Course {
	f := c.read()
	if f == nil || f.LastUpdated.IsZero() {
		return nil
	}
	if time.Since(f.LastUpdated) >= maxAge {
		return nil
	}
	return f.Courses
}

func (c *Cache) read() *cacheFile {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil
	}
	var f cacheFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil
	}
	return &f
}
