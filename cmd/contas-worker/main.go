package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"contas/internal/amqp"
	"contas/internal/backend"
	"contas/internal/cli"
	"contas/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	logger.Info("Starting export worker")

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	appender, err := backend.New(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize export backend", "error", err)
		os.Exit(1)
	}
	if appender == nil {
		logger.Info("Export backend disabled, worker has nothing to do")
		return
	}

	syncWorker := worker.NewSyncWorker(repo, appender, cfg.SyncBatchSize)

	// Catch up on anything missed while the worker was down before the
	// event-driven loop takes over.
	if err := syncWorker.StartupSyncCheck(ctx); err != nil {
		logger.Error("Startup sync check failed", "error", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()

		g.Go(func() error {
			err := amqpClient.ConsumeChanges(ctx, func(event *amqp.ChangeEvent) error {
				return syncWorker.HandleChangeEvent(ctx, event)
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	} else {
		logger.Info("AMQP disabled, relying on periodic drains only")
	}

	// The periodic drain covers lost change events and broker downtime.
	g.Go(func() error {
		ticker := time.NewTicker(cfg.SyncInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if err := syncWorker.DrainPending(ctx); err != nil {
					logger.Error("Periodic drain failed", "error", err)
				}
			}
		}
	})

	if err := g.Wait(); err != nil {
		logger.Error("Worker failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}
