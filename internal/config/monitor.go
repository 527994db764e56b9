package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// MonitorConfig holds the monitoring preferences a deployment may hot-edit
// while the monitor is running. It is re-read from disk on every access so
// edits take effect without a restart; callers must not cache it.
type MonitorConfig struct {
	MonitorAllCourses    bool                 `json:"monitor_all_courses"`
	MonitoredCourseIDs   []string             `json:"monitored_course_ids"`
	ExcludedCourseIDs    []string             `json:"excluded_course_ids"`
	CheckIntervalMinutes int                  `json:"check_interval_minutes"`
	Notifications        NotificationSettings `json:"notification_settings"`
	DatabaseCleanupDays  int                  `json:"database_cleanup_days"`
}

type NotificationSettings struct {
	SendEmail        bool `json:"send_email"`
	SendErrorAlerts  bool `json:"send_error_alerts"`
	FetchFullContent bool `json:"fetch_full_content"`
}

// DefaultMonitorConfig returns the configuration written on first use.
func DefaultMonitorConfig() *MonitorConfig {
	return &MonitorConfig{
		MonitorAllCourses:    true,
		MonitoredCourseIDs:   []string{},
		ExcludedCourseIDs:    []string{},
		CheckIntervalMinutes: 30,
		Notifications: NotificationSettings{
			SendEmail:        true,
			SendErrorAlerts:  true,
			FetchFullContent: true,
		},
		DatabaseCleanupDays: 90,
	}
}

// MonitorStore loads the hot-editable monitor config from a JSON file.
type MonitorStore struct {
	path string
}

// NewMonitorStore creates a store for the given file path, writing the
// default config if none exists yet.
func NewMonitorStore(path string) (*MonitorStore, error) {
	s := &MonitorStore{path: path}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := s.write(DefaultMonitorConfig()); err != nil {
			return nil, fmt.Errorf("writing default monitor config: %w", err)
		}
	}
	return s, nil
}

// Path returns the config file path.
func (s *MonitorStore) Path() string {
	return s.path
}

// Load reads the config file. Called at every decision point rather than
// cached, which is what makes runtime edits effective.
func (s *MonitorStore) Load() (*MonitorConfig, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("reading monitor config: %w", err)
	}

	cfg := DefaultMonitorConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing monitor config: %w", err)
	}
	if cfg.CheckIntervalMinutes <= 0 {
		cfg.CheckIntervalMinutes = 30
	}
	if cfg.DatabaseCleanupDays <= 0 {
		cfg.DatabaseCleanupDays = 90
	}
	return cfg, nil
}

// ShouldMonitor reports whether a course is monitored. Exclusion always
// overrides inclusion; with monitor_all_courses unset only the allow-list
// applies.
func (s *MonitorStore) ShouldMonitor(courseID string) (bool, error) {
	cfg, err := s.Load()
	if err != nil {
		return false, err
	}
	return cfg.ShouldMonitor(courseID), nil
}

// ShouldMonitor applies the allow/deny rules to a course id.
func (c *MonitorConfig) ShouldMonitor(courseID string) bool {
	for _, id := range c.ExcludedCourseIDs {
		if id == courseID {
			return false
		}
	}
	if c.MonitorAllCourses {
		return true
	}
	for _, id := range c.MonitoredCourseIDs {
		if id == courseID {
			return true
		}
	}
	return false
}

// CheckInterval returns the configured interval as a duration.
func (c *MonitorConfig) CheckInterval() time.Duration {
	return time.Duration(c.CheckIntervalMinutes) * time.Minute
}

func (s *MonitorStore) write(cfg *MonitorConfig) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, append(data, '\n'), 0o644)
}
