package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"metas/internal/amqp"
	"metas/internal/config"
	applog "metas/internal/log"
	"metas/internal/sheets"
	gsheet "metas/internal/sheets/google"
	mem "metas/internal/sheets/memory"
	"metas/internal/storage"
	"metas/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentWorker)
	applog.SetDefault(logger)

	logger.Info("Starting metas-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// Without a spreadsheet the worker still drains the queue, reporting to
	// an in-memory sink. Useful for local development.
	var writer sheets.ReportWriter
	if cfg.ReportSpreadsheetID != "" {
		client, err := gsheet.NewFromEnv(context.Background())
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		writer = client
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.ReportSpreadsheetID)
	} else {
		writer = mem.New()
		logger.Warn("No REPORT_SPREADSHEET_ID provided, using in-memory report sink")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	reportWorker := worker.NewReportWorker(repo, writer, cfg.ReportBatchSize)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Drain any backlog left over from downtime before consuming.
	if err := reportWorker.StartupCheck(ctx); err != nil {
		logger.Error("Startup report check failed", "error", err)
		// Don't exit, the periodic rescan retries
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return amqpClient.ConsumeGoalEvents(ctx, func(msg *amqp.GoalEventMessage) error {
			return reportWorker.HandleGoalEvent(ctx, msg)
		})
	})

	g.Go(func() error {
		ticker := time.NewTicker(cfg.ReportInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if err := reportWorker.ProcessPending(ctx); err != nil {
					logger.Error("Periodic report pass failed", "error", err)
				}
			}
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}
