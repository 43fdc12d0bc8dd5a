package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"farmledger/internal/adapters/google"
	"farmledger/internal/amqp"
	"farmledger/internal/backend"
	"farmledger/internal/cli"
	"farmledger/internal/config"
	"farmledger/internal/log"
	"farmledger/internal/worker"
)

func main() {
	cfg := cli.MustLoadConfig(func(c *config.Config) error {
		return errors.Join(c.Validate(), c.ValidateWorker())
	})
	logger := cli.SetupLogger(cfg, log.ComponentWorker)
	logger.Info("Starting farmledger-worker")

	if err := run(cfg, logger); err != nil {
		logger.Error("Worker exited with error", log.FieldError, err.Error())
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *log.Logger) error {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	if bcfg.Type == backend.SheetsBackend {
		return fmt.Errorf("DATA_BACKEND=sheets: the spreadsheet is already the primary store, nothing to mirror")
	}

	setupCtx, cancelSetup := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelSetup()

	res, err := backend.NewFactory(logger).CreateBackend(setupCtx, bcfg)
	if err != nil {
		return err
	}
	defer res.Close()

	mirror, err := google.New(setupCtx, backend.SheetsConfig(bcfg))
	if err != nil {
		return fmt.Errorf("init sheets mirror: %w", err)
	}
	if err := mirror.EnsureHeader(setupCtx); err != nil {
		return fmt.Errorf("prepare sheets mirror: %w", err)
	}
	logger.Info("Google Sheets mirror initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)

	consumer, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		return err
	}
	defer consumer.Close()

	w := worker.NewMirrorWorker(res.Backend, mirror, logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		w.Stop()
	})

	// A process-local memory store has nothing the mirror should be reset to.
	if bcfg.Type != backend.MemoryBackend {
		logger.Info("Performing startup reconcile")
		if err := w.Reconcile(ctx); err != nil {
			logger.Error("Startup reconcile failed", log.FieldError, err.Error())
		}
		if err := w.StartSchedule(ctx, cfg.SyncSchedule); err != nil {
			return err
		}
	} else {
		logger.Warn("Memory backend: scheduled reconcile disabled, only change events are mirrored")
	}

	consumeErr := make(chan error, 1)
	go func() {
		consumeErr <- consumer.ConsumeChanges(ctx, w.HandleChange)
	}()

	select {
	case err := <-consumeErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("consume changes: %w", err)
		}
	case <-ctx.Done():
	}
	cli.WaitForShutdown(ctx, done)
	return nil
}
