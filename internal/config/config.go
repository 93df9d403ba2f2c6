// Package config handles configuration loading for taskgrid. It supports
// XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config holds all configuration for taskgrid.
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Notifier  NotifierConfig  `mapstructure:"notifier"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	TUI       TUIConfig       `mapstructure:"tui"`
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig holds structured-log settings.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `mapstructure:"level"`
	// Format is "json" or "console".
	Format string `mapstructure:"format"`
}

// NotifierConfig holds notification dispatch settings.
type NotifierConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// SchedulerConfig holds worker loop settings.
type SchedulerConfig struct {
	TickInterval   time.Duration `mapstructure:"tick_interval"`
	BatchSize      int           `mapstructure:"batch_size"`
	ReaperInterval time.Duration `mapstructure:"reaper_interval"`
	StaleAfter     time.Duration `mapstructure:"stale_after"`
}

// TUIConfig holds live-board display settings.
type TUIConfig struct {
	RefreshRate time.Duration `mapstructure:"refresh_rate"`
}

// Load loads configuration from XDG paths, project overrides, and
// environment variables. Precedence (highest to lowest):
// 1. Environment variables (TASKGRID_DB_PATH, TASKGRID_LOG_LEVEL)
// 2. Project config (.taskgrid.yaml in current directory or parent)
// 3. User config (~/.config/taskgrid/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	// Project config takes precedence over the user config.
	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.AutomaticEnv()
	v.BindEnv("database.path", "TASKGRID_DB_PATH")
	v.BindEnv("logging.level", "TASKGRID_LOG_LEVEL")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Database.Path = os.ExpandEnv(cfg.Database.Path)

	return cfg, nil
}

// LoadFromPath loads configuration from a specific file.
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Database.Path = os.ExpandEnv(cfg.Database.Path)

	return cfg, nil
}

// Save writes the configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath := filepath.Join(userConfigDir, "config.yaml")

	v := viper.New()
	v.SetConfigFile(configPath)

	v.Set("database.path", cfg.Database.Path)
	v.Set("logging.level", cfg.Logging.Level)
	v.Set("logging.format", cfg.Logging.Format)
	v.Set("notifier.timeout", cfg.Notifier.Timeout.String())
	v.Set("scheduler.tick_interval", cfg.Scheduler.TickInterval.String())
	v.Set("scheduler.batch_size", cfg.Scheduler.BatchSize)
	v.Set("scheduler.reaper_interval", cfg.Scheduler.ReaperInterval.String())
	v.Set("scheduler.stale_after", cfg.Scheduler.StaleAfter.String())
	v.Set("tui.refresh_rate", cfg.TUI.RefreshRate.String())

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it
// exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// Watch monitors the given config file and invokes onChange whenever it
// is written or re-created. Returns a stop function. Editors often
// replace files on save, so Create events count too.
func Watch(path string, onChange func()) (func(), error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating config watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watching %s: %w", path, err)
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != filepath.Base(path) {
					continue
				}
				if event.Op&fsnotify.Write != 0 || event.Op&fsnotify.Create != 0 {
					onChange()
				}
			case <-watcher.Errors:
				// Ignore errors, keep watching
			}
		}
	}()

	return func() {
		close(done)
		watcher.Close()
	}, nil
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("database.path", filepath.Join(getUserDataDir(), "taskgrid.db"))

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("notifier.timeout", "10s")

	v.SetDefault("scheduler.tick_interval", "1m")
	v.SetDefault("scheduler.batch_size", 100)
	v.SetDefault("scheduler.reaper_interval", "5m")
	v.SetDefault("scheduler.stale_after", "10m")

	v.SetDefault("tui.refresh_rate", "2s")
}

// getUserConfigDir returns the XDG config directory for taskgrid.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "taskgrid")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "taskgrid")
	}
	return filepath.Join(home, ".config", "taskgrid")
}

// getUserDataDir returns the XDG data directory for taskgrid.
func getUserDataDir() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "taskgrid")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".local", "share", "taskgrid")
	}
	return filepath.Join(home, ".local", "share", "taskgrid")
}

// findProjectConfig searches for .taskgrid.yaml in the current directory
// and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".taskgrid.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path: filepath.Join(getUserDataDir(), "taskgrid.db"),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Notifier: NotifierConfig{
			Timeout: 10 * time.Second,
		},
		Scheduler: SchedulerConfig{
			TickInterval:   time.Minute,
			BatchSize:      100,
			ReaperInterval: 5 * time.Minute,
			StaleAfter:     10 * time.Minute,
		},
		TUI: TUIConfig{
			RefreshRate: 2 * time.Second,
		},
	}
}
