package config

import (
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *MonitorStore {
	t.Helper()
	s, err := NewMonitorStore(filepath.Join(t.TempDir(), "monitor.json"))
	if err != nil {
		t.Fatalf("creating monitor store: %v", err)
	}
	return s
}

func TestMonitorStoreWritesDefaults(t *testing.T) {
	s := newTestStore(t)

	cfg, err := s.Load()
	if err != nil {
		t.Fatalf("loading defaults: %v", err)
	}
	if !cfg.MonitorAllCourses {
		t.Error("expected monitor_all_courses default true")
	}
	if cfg.CheckIntervalMinutes != 30 {
		t.Errorf("expected 30 minute default interval, got %d", cfg.CheckIntervalMinutes)
	}
	if cfg.DatabaseCleanupDays != 90 {
		t.Errorf("expected 90 day default retention, got %d", cfg.DatabaseCleanupDays)
	}
	if !cfg.Notifications.SendEmail || !cfg.Notifications.SendErrorAlerts {
		t.Error("expected notifications enabled by default")
	}
}

func TestShouldMonitorExclusionWins(t *testing.T) {
	cfg := &MonitorConfig{
		MonitorAllCourses:  true,
		MonitoredCourseIDs: []string{"101"},
		ExcludedCourseIDs:  []string{"101"},
	}
	if cfg.ShouldMonitor("101") {
		t.Error("exclusion must override inclusion")
	}
	if !cfg.ShouldMonitor("102") {
		t.Error("monitor-all should cover unlisted courses")
	}
}

func TestShouldMonitorAllowList(t *testing.T) {
	cfg := &MonitorConfig{
		MonitorAllCourses:  false,
		MonitoredCourseIDs: []string{"101"},
	}
	if !cfg.ShouldMonitor("101") {
		t.Error("listed course should be monitored")
	}
	if cfg.ShouldMonitor("102") {
		t.Error("unlisted course should not be monitored when monitor-all is off")
	}
}

func TestMonitorConfigHotReload(t *testing.T) {
	s := newTestStore(t)

	ok, err := s.ShouldMonitor("101")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected course monitored under defaults")
	}

	// Edit the file behind the store's back; the next access must see it.
	edited := []byte(`{"monitor_all_courses": true, "excluded_course_ids": ["101"]}`)
	if err := os.WriteFile(s.Path(), edited, 0o644); err != nil {
		t.Fatalf("editing config: %v", err)
	}

	ok, err = s.ShouldMonitor("101")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected runtime edit to take effect without restart")
	}
}

func TestLoadSanitizesBadValues(t *testing.T) {
	s := newTestStore(t)
	bad := []byte(`{"check_interval_minutes": 0, "database_cleanup_days": -5}`)
	if err := os.WriteFile(s.Path(), bad, 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := s.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.CheckIntervalMinutes != 30 {
		t.Errorf("expected interval clamped to 30, got %d", cfg.CheckIntervalMinutes)
	}
	if cfg.DatabaseCleanupDays != 90 {
		t.Errorf("expected retention clamped to 90, got %d", cfg.DatabaseCleanupDays)
	}
}
