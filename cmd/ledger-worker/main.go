package main

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"dailyledger/internal/amqp"
	"dailyledger/internal/backend"
	"dailyledger/internal/cli"
	"dailyledger/internal/config"
	"dailyledger/internal/log"
	gsheet "dailyledger/internal/sheets/google"
	"dailyledger/internal/worker"
)

func main() {
	cfg, logger := cli.Bootstrap(log.ComponentWorker, (*config.Config).ValidateWorker)
	logger.Info("Starting ledger-worker")

	ctx, cancel := cli.ShutdownContext(logger)
	defer cancel()

	bc := cli.BackendConfig(logger, cfg)

	mirror, err := gsheet.New(ctx, gsheet.Settings{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
		Location:        bc.Calendar.Location(),
	})
	if err != nil {
		cli.Fatal(logger, "Failed to initialize Google Sheets client", err)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)

	// Reconciliation reads the shared database directly. A memory backend
	// lives in the server process, so the worker relies on events alone.
	var source worker.ExpenseSource
	if bc.Type != backend.MemoryBackend {
		// The worker only reads; it must not publish events of its own.
		bc.AMQPURL = ""
		bc.DailyCacheSize = 0
		res, err := backend.NewFactory(logger).CreateBackend(ctx, bc)
		if err != nil {
			cli.Fatal(logger, "Failed to initialize backend", err)
		}
		defer func() {
			if err := res.Cleanup(); err != nil {
				logger.Error("Backend cleanup failed", log.FieldError, err.Error())
			}
		}()
		source = res.Store
	} else {
		logger.Info("Memory backend configured, reconciliation disabled")
	}

	consumer, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize AMQP client", err)
	}
	defer consumer.Close()

	w := worker.NewMirrorWorker(mirror, mirror, source)

	if source != nil {
		logger.Info("Performing startup reconciliation")
		if res, err := w.Reconcile(ctx); err != nil {
			// Events still flow; the loop retries later.
			logger.Error("Startup reconciliation failed", log.FieldError, err.Error())
		} else {
			logger.Info("Startup reconciliation complete",
				"upserted", res.Upserted,
				"removed", res.Removed,
				"errors", res.Errors)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return consumer.ConsumeExpenseEvents(gctx, w.HandleEvent)
	})
	if source != nil {
		g.Go(func() error {
			return w.RunReconcileLoop(gctx, cfg.ReconcileInterval)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", log.FieldError, err.Error())
		cancel()
		return
	}
	logger.Info("Worker stopped gracefully")
}
