// Command condofin-worker consumes ledger events, keeps the Sheets mirror and
// the shared cache current, and runs the scheduled ledger jobs.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"condofin/internal/archive"
	"condofin/internal/backend"
	"condofin/internal/cli"
	"condofin/internal/config"
	"condofin/internal/core"
	clog "condofin/internal/log"
	"condofin/internal/report"
	"condofin/internal/sheets"
	gsheet "condofin/internal/sheets/google"
	"condofin/internal/worker"
)

const (
	jobTimeout        = 10 * time.Minute
	shutdownTimeout   = 30 * time.Second
	reconcileSchedule = "@hourly"
	reconcileBatch    = 200
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(clog.ComponentWorker)
	logger.Info("Starting condofin-worker")

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	baseCtx := clog.WithContext(context.Background(), logger)
	res, err := cli.OpenBackend(baseCtx, logger.Logger, cfg)
	if err != nil {
		logger.Error("Failed to open backend", "error", err)
		os.Exit(1)
	}

	var mirror sheets.Mirror
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsheet.New(baseCtx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			res.Close()
			os.Exit(1)
		}
		mirror = client
		logger.Info("Google Sheets mirror enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Google Sheets mirror disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	var bucket *archive.GCSBucket
	if cfg.GCSBucket != "" {
		bucket, err = archive.NewGCSBucket(baseCtx, cfg.GCSBucket)
		if err != nil {
			logger.Error("Failed to initialize GCS bucket", "error", err)
			res.Close()
			os.Exit(1)
		}
	}

	var archiveBucket archive.Bucket
	if bucket != nil {
		archiveBucket = bucket
	}

	syncWorker := newSyncWorker(res, mirror)
	scheduler := worker.NewScheduler(baseCtx, jobTimeout)
	if err := registerJobs(scheduler, cfg, res, syncWorker, archiveBucket, logger); err != nil {
		logger.Error("Failed to schedule jobs", "error", err)
		res.Close()
		os.Exit(1)
	}

	runCtx, stop := context.WithCancelCause(baseCtx)
	defer stop(nil)

	ctx, done := cli.GracefulShutdown(runCtx, logger.Logger, shutdownTimeout, func() {
		scheduler.Stop()
		if bucket != nil {
			bucket.Close()
		}
		if err := res.Close(); err != nil {
			logger.Error("Failed to release backend", "error", err)
		}
	})

	if mirror != nil {
		logger.Info("Performing startup reconcile...")
		if err := scheduler.RunNow("reconcile", func(ctx context.Context) error {
			_, err := syncWorker.Reconcile(ctx)
			return err
		}); err != nil {
			logger.Error("Failed startup reconcile", "error", err)
		}
	}

	scheduler.Start()

	if res.Publisher != nil {
		go consumeEvents(ctx, func(ctx context.Context) error {
			return res.Publisher.ConsumeLedgerEvents(ctx, syncWorker.HandleEvent)
		}, stop, logger)
	} else {
		logger.Info("Skipping AMQP event consumption - no AMQP client available")
	}

	cli.WaitForShutdown(ctx, done)
	if err := context.Cause(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped", "error", err)
		os.Exit(1)
	}
}

// consumeEvents runs consume until ctx ends. If consumption stops for any other
// reason the worker is shut down with the failure as cause.
func consumeEvents(ctx context.Context, consume func(context.Context) error, stop context.CancelCauseFunc, logger *clog.Logger) {
	err := consume(ctx)
	if ctx.Err() != nil {
		return
	}
	if err == nil {
		err = errors.New("consumer stopped")
	}
	logger.Error("Event consumption failed, shutting down", "error", err)
	stop(fmt.Errorf("event consumption: %w", err))
}

// newSyncWorker reads through the raw store so events are never answered from
// a stale cache.
func newSyncWorker(res *backend.BackendResult, mirror sheets.Mirror) *worker.SyncWorker {
	var inv worker.Invalidator
	if res.Cache != nil {
		inv = res.Cache
	}
	return worker.NewSyncWorker(res.Store, mirror, inv, reconcileBatch)
}

func registerJobs(s *worker.Scheduler, cfg *config.Config, res *backend.BackendResult, sw *worker.SyncWorker, bucket archive.Bucket, logger *clog.Logger) error {
	if err := s.Add(clog.OpSweep, cfg.OverdueSweepSchedule, func(ctx context.Context) error {
		_, err := res.Invoices.MarkOverdue(ctx, core.Date{})
		return err
	}); err != nil {
		return err
	}

	if bucket != nil && len(cfg.ArchiveCondominiumIDs) > 0 {
		archiver := archive.NewArchiver(bucket, report.NewEngine(res.Transactions, logger.WithComponent(clog.ComponentReport)))
		if err := s.Add(clog.OpArchive, cfg.ArchiveSchedule, func(ctx context.Context) error {
			return archiver.ArchivePreviousMonth(ctx, cfg.ArchiveCondominiumIDs)
		}); err != nil {
			return err
		}
	}

	return s.Add(clog.OpSync, reconcileSchedule, func(ctx context.Context) error {
		_, err := sw.Reconcile(ctx)
		return err
	})
}
