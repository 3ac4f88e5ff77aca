package cli

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"condofin/internal/config"
)

func TestGracefulShutdownRunsCleanupOnParentCancel(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cleaned := make(chan struct{})
	ctx, done := GracefulShutdown(parent, logger, time.Second, func() { close(cleaned) })
	cancel()

	WaitForShutdown(ctx, done)
	select {
	case <-cleaned:
	default:
		t.Fatal("cleanup did not run")
	}
}

func TestGracefulShutdownTimeout(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	block := make(chan struct{})
	defer close(block)
	ctx, done := GracefulShutdown(parent, logger, 20*time.Millisecond, func() { <-block })
	cancel()

	finished := make(chan struct{})
	go func() {
		WaitForShutdown(ctx, done)
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("shutdown did not give up on a stuck cleanup")
	}
}

func TestOpenBackend(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &config.Config{
		DataBackend:  "sqlite",
		SQLiteDBPath: filepath.Join(t.TempDir(), "condofin.db"),
		CacheSize:    10,
		CacheTTL:     time.Minute,
	}
	res, err := OpenBackend(context.Background(), logger, cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer res.Close()
	if res.Cache == nil || res.Ledger == nil || res.Invoices == nil {
		t.Fatalf("backend not fully wired: %+v", res)
	}

	if _, err := OpenBackend(context.Background(), logger, &config.Config{DataBackend: "csv"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}
