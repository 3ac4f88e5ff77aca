package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"condofin/internal/backend"
	"condofin/internal/config"
	"condofin/internal/core"
	clog "condofin/internal/log"
	sheetsmem "condofin/internal/sheets/memory"
	"condofin/internal/worker"

	"github.com/shopspring/decimal"
)

type nopBucket struct{}

func (nopBucket) Put(context.Context, string, string, []byte) error { return nil }
func (nopBucket) Get(context.Context, string) ([]byte, error)       { return nil, nil }

func TestRegisterJobs(t *testing.T) {
	ctx := context.Background()
	res, err := backend.NewFactory(nil).CreateBackend(ctx, backend.Config{Type: backend.MemoryBackend, CacheSize: 10, CacheTTL: time.Minute})
	if err != nil {
		t.Fatal(err)
	}
	defer res.Close()

	cfg := &config.Config{
		OverdueSweepSchedule:  "0 6 * * *",
		ArchiveSchedule:       "0 3 1 * *",
		ArchiveCondominiumIDs: []int64{1},
	}
	logger := clog.New(clog.DefaultConfig())
	s := worker.NewScheduler(ctx, time.Minute)
	sw := newSyncWorker(res, sheetsmem.New())

	if err := registerJobs(s, cfg, res, sw, nopBucket{}, logger); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{clog.OpSweep, clog.OpArchive, clog.OpSync} {
		if _, ok := s.Next(name); !ok {
			t.Errorf("job %s not scheduled", name)
		}
	}

	noArchive := worker.NewScheduler(ctx, time.Minute)
	if err := registerJobs(noArchive, cfg, res, sw, nil, logger); err != nil {
		t.Fatal(err)
	}
	if _, ok := noArchive.Next(clog.OpArchive); ok {
		t.Error("archive job scheduled without a bucket")
	}
}

func TestWorkerReadsThroughRawStore(t *testing.T) {
	ctx := context.Background()
	res, err := backend.NewFactory(nil).CreateBackend(ctx, backend.Config{Type: backend.MemoryBackend, CacheSize: 10, CacheTTL: time.Minute})
	if err != nil {
		t.Fatal(err)
	}
	defer res.Close()

	mirror := sheetsmem.New()
	sw := newSyncWorker(res, mirror)

	tx := core.FinancialTransaction{
		CondominiumID: 1, Amount: decimal.NewFromInt(10), Type: core.Revenue,
		Category: "taxa", Date: core.NewDate(2024, 5, 1), Status: core.StatusPending,
	}
	if err := res.Ledger.RecordTransaction(ctx, &tx); err != nil {
		t.Fatal(err)
	}
	got, err := sw.Reconcile(ctx)
	if err != nil || got.Upserted != 1 {
		t.Fatalf("reconcile = %+v, %v", got, err)
	}
}

func TestConsumeEventsStopsWorkerOnFailure(t *testing.T) {
	logger := clog.New(clog.DefaultConfig())
	broken := errors.New("channel closed by broker")

	tests := []struct {
		name    string
		consume func(context.Context) error
		want    error
	}{
		{"consumer error", func(context.Context) error { return broken }, broken},
		{"consumer returns early", func(context.Context) error { return nil }, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, stop := context.WithCancelCause(context.Background())
			defer stop(nil)

			consumeEvents(ctx, tt.consume, stop, logger)

			if ctx.Err() == nil {
				t.Fatal("worker context not canceled")
			}
			cause := context.Cause(ctx)
			if errors.Is(cause, context.Canceled) {
				t.Fatalf("cause = %v, want a consumption failure", cause)
			}
			if tt.want != nil && !errors.Is(cause, tt.want) {
				t.Fatalf("cause = %v, want %v", cause, tt.want)
			}
		})
	}
}

func TestConsumeEventsIgnoresShutdown(t *testing.T) {
	logger := clog.New(clog.DefaultConfig())
	parent, stop := context.WithCancelCause(context.Background())
	defer stop(nil)
	ctx, cancel := context.WithCancel(parent)
	cancel()

	consumeEvents(ctx, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, stop, logger)

	if parent.Err() != nil {
		t.Fatalf("shutdown was reported as a failure: %v", context.Cause(parent))
	}
}
