package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"taskgrid/internal/config"
	"taskgrid/internal/engine"
	"taskgrid/internal/notify"
	"taskgrid/internal/store"
	"taskgrid/pkg/models"
)

// Exit codes by engine error kind, for scripting against the CLI.
const (
	exitOK         = 0
	exitInternal   = 1
	exitValidation = 2
	exitNotFound   = 3
	exitForbidden  = 4
	exitConflict   = 5
	exitTransient  = 6
)

var (
	flagConfig string
	flagDB     string
)

var rootCmd = &cobra.Command{
	Use:   "taskgrid",
	Short: "Dependency-aware task orchestration",
	Long: `Taskgrid manages projects of tasks connected by dependency edges.

Completing a task can notify assignees of newly unblocked work, fire
custom messages, or cascade status changes along the graph; deferred
actions and deadline reminders run through the worker.

Core capabilities:
- Dependency graphs with cycle prevention and readiness computation
- Reactive actions on edges (notify, change status, delayed dispatch)
- Deadline reminders via a persistent scheduler queue
- Role-based authorization per project
- Graph analysis: topological order, cycles, critical path`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and maps engine error kinds to exit
// codes.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps an error to a process exit code.
func exitCode(err error) int {
	switch engine.KindOf(err) {
	case engine.KindValidation:
		return exitValidation
	case engine.KindNotFound:
		return exitNotFound
	case engine.KindForbidden:
		return exitForbidden
	case engine.KindConflict:
		return exitConflict
	case engine.KindTransient:
		return exitTransient
	default:
		return exitInternal
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default: XDG config + .taskgrid.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "Database path (overrides config)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(projectCmd)
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(depCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(workerCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig loads configuration, honoring the --config and --db flags.
func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if flagConfig != "" {
		cfg, err = config.LoadFromPath(flagConfig)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if flagDB != "" {
		cfg.Database.Path = flagDB
	}
	return cfg, nil
}

// buildLogger constructs the zap logger described by the config.
func buildLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	var zc zap.Config
	if cfg.Format == "json" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

// openStore opens and migrates the database.
func openStore(cfg *config.Config) (*store.DB, error) {
	db, err := store.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", cfg.Database.Path, err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return db, nil
}

// newEngine wires an engine with the configured logger and the logging
// notifier.
func newEngine(db *store.DB, logger *zap.Logger) *engine.Engine {
	return engine.New(db,
		engine.WithLogger(logger),
		engine.WithNotifier(notify.NewLogNotifier(logger)),
	)
}

// commandContext returns the context for one-shot commands, cancelled on
// interrupt.
func commandContext() context.Context {
	ctx, _ := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	return ctx
}

// lookupProject resolves a project by slug, falling back to ID.
func lookupProject(db *store.DB, ref string) (*models.Project, error) {
	project, err := db.GetProjectBySlug(ref)
	if err != nil {
		return nil, fmt.Errorf("load project: %w", err)
	}
	if project == nil {
		project, err = db.GetProject(ref)
		if err != nil {
			return nil, fmt.Errorf("load project: %w", err)
		}
	}
	if project == nil {
		return nil, fmt.Errorf("project %q not found", ref)
	}
	return project, nil
}

// setup loads config, logger, and store for a command. Callers close the
// returned DB and sync the logger.
func setup() (*config.Config, *zap.Logger, *store.DB, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	logger, err := buildLogger(cfg.Logging)
	if err != nil {
		return nil, nil, nil, err
	}
	db, err := openStore(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, logger, db, nil
}
