package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Database.Path == "" {
		t.Error("expected a default database path")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected info level, got %q", cfg.Logging.Level)
	}
	if cfg.Scheduler.TickInterval != time.Minute {
		t.Errorf("expected 1m tick, got %v", cfg.Scheduler.TickInterval)
	}
	if cfg.Scheduler.BatchSize != 100 {
		t.Errorf("expected batch 100, got %d", cfg.Scheduler.BatchSize)
	}
	if cfg.Notifier.Timeout != 10*time.Second {
		t.Errorf("expected 10s notifier timeout, got %v", cfg.Notifier.Timeout)
	}
}

func TestLoadFromPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
database:
  path: /tmp/custom.db
logging:
  level: debug
  format: json
scheduler:
  tick_interval: 30s
  batch_size: 25
tui:
  refresh_rate: 500ms
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Database.Path != "/tmp/custom.db" {
		t.Errorf("expected custom db path, got %q", cfg.Database.Path)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("unexpected logging config: %+v", cfg.Logging)
	}
	if cfg.Scheduler.TickInterval != 30*time.Second {
		t.Errorf("expected 30s tick, got %v", cfg.Scheduler.TickInterval)
	}
	if cfg.Scheduler.BatchSize != 25 {
		t.Errorf("expected batch 25, got %d", cfg.Scheduler.BatchSize)
	}
	if cfg.TUI.RefreshRate != 500*time.Millisecond {
		t.Errorf("expected 500ms refresh, got %v", cfg.TUI.RefreshRate)
	}
}

func TestLoadFromPathKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("logging:\n  level: warn\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("expected warn, got %q", cfg.Logging.Level)
	}
	// Untouched sections fall back to defaults.
	if cfg.Scheduler.BatchSize != 100 {
		t.Errorf("expected default batch, got %d", cfg.Scheduler.BatchSize)
	}
	if cfg.Scheduler.StaleAfter != 10*time.Minute {
		t.Errorf("expected default stale_after, got %v", cfg.Scheduler.StaleAfter)
	}
}

func TestLoadFromPathExpandsEnv(t *testing.T) {
	t.Setenv("TASKGRID_TEST_DATA", "/var/data")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("database:\n  path: ${TASKGRID_TEST_DATA}/grid.db\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Database.Path != "/var/data/grid.db" {
		t.Errorf("expected expanded path, got %q", cfg.Database.Path)
	}
}

func TestLoadFromPathMissingFile(t *testing.T) {
	if _, err := LoadFromPath(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestSaveAndReload(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg := Default()
	cfg.Logging.Level = "debug"
	cfg.Scheduler.BatchSize = 10
	if err := Save(cfg); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := LoadFromPath(GetUserConfigPath())
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if loaded.Logging.Level != "debug" {
		t.Errorf("expected debug, got %q", loaded.Logging.Level)
	}
	if loaded.Scheduler.BatchSize != 10 {
		t.Errorf("expected batch 10, got %d", loaded.Scheduler.BatchSize)
	}
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("logging:\n  level: info\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	changed := make(chan struct{}, 1)
	stop, err := Watch(path, func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	defer stop()

	if err := os.WriteFile(path, []byte("logging:\n  level: debug\n"), 0644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	select {
	case <-changed:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not report the change")
	}
}
