package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"taskgrid/internal/config"
	"taskgrid/internal/scheduler"
)

var workerOnce bool

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the scheduled-action worker",
	Long: `Run the worker loop that dispatches due scheduled actions:
deadline reminders and delayed dependency actions. The companion reaper
requeues rows abandoned by a crashed worker.

With --once, processes one batch and exits.`,
	RunE: runWorker,
}

func init() {
	workerCmd.Flags().BoolVar(&workerOnce, "once", false, "Process one batch and exit")
}

func runWorker(cmd *cobra.Command, args []string) error {
	cfg, logger, db, err := setup()
	if err != nil {
		return err
	}
	defer db.Close()
	defer logger.Sync()

	eng := newEngine(db, logger)
	worker := scheduler.New(db, eng,
		scheduler.WithLogger(logger),
		scheduler.WithTickInterval(cfg.Scheduler.TickInterval),
		scheduler.WithBatchSize(cfg.Scheduler.BatchSize),
		scheduler.WithReaper(cfg.Scheduler.ReaperInterval, cfg.Scheduler.StaleAfter),
	)

	ctx := commandContext()

	if workerOnce {
		n, err := worker.Tick(ctx)
		if err != nil {
			return err
		}
		logger.Info("batch processed", zap.Int("rows", n))
		return nil
	}

	// Config edits require a restart; the watcher makes that visible
	// instead of silently ignoring the change.
	if path := config.GetProjectConfigPath(); path != "" {
		stop, err := config.Watch(path, func() {
			logger.Warn("config file changed, restart the worker to apply it",
				zap.String("path", path))
		})
		if err == nil {
			defer stop()
		}
	}

	logger.Info("worker started",
		zap.Duration("tick", cfg.Scheduler.TickInterval),
		zap.Int("batch", cfg.Scheduler.BatchSize))

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("worker stopped")
	return nil
}
