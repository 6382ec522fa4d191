package main

import (
	"context"
	"os"

	"contas/internal/amqp"
	"contas/internal/cache"
	"contas/internal/cli"
	apphttp "contas/internal/http"
	"contas/internal/services"
	"contas/internal/stream"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	// The broker is optional: without it the snapshot hub still pushes
	// live updates inside this process, only the worker loses its
	// change-event trigger and falls back to periodic drains.
	var publisher services.Publisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		publisher = amqpClient
	} else {
		logger.Info("AMQP disabled, change events stay in-process")
	}

	hub := stream.NewHub(repo)
	summaries := cache.NewSummaryCache(cfg.SummaryCacheSize, cfg.SummaryCacheTTL)

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	cacheManager := cache.NewManager()
	cacheManager.Register(summaries)
	cacheManager.StartCleanup(cfg.SummaryCacheTTL)
	defer cacheManager.Stop()

	server := apphttp.NewServer(apphttp.Options{
		Config:    cfg,
		Finance:   services.NewFinanceService(repo, publisher, hub),
		Admin:     services.NewAdminService(repo),
		Users:     services.NewUserService(repo),
		Reader:    repo,
		Hub:       hub,
		Summaries: summaries,
		Logger:    logger,
	})

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cli.ShutdownTimeout)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
