// Package archive stores monthly consolidated reports as objects so they
// survive later edits to the ledger.
package archive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"condofin/internal/core"
	"condofin/internal/report"

	"golang.org/x/sync/errgroup"
)

// ErrNotArchived is returned when no archived report exists for the month.
var ErrNotArchived = errors.New("report not archived")

var contentTypes = map[string]string{
	"json": "application/json",
	"csv":  "text/csv",
}

// Formats archived for every month, in upload order.
var Formats = []string{"json", "csv"}

// ObjectName is the object path of a consolidated report export.
func ObjectName(condominiumID int64, year int, month time.Month, format string) string {
	return fmt.Sprintf("reports/%d/%04d-%02d/consolidated.%s", condominiumID, year, int(month), format)
}

// MonthWindow returns the first and last day of the month.
func MonthWindow(year int, month time.Month) (core.Date, core.Date) {
	first := core.NewDate(year, int(month), 1)
	last := core.DateOf(first.AddDate(0, 1, -1))
	return first, last
}

// DefaultParallelism bounds how many condominiums are archived at once.
const DefaultParallelism = 4

type Archiver struct {
	bucket   Bucket
	reports  *report.Engine
	now      func() time.Time
	parallel int
}

func NewArchiver(bucket Bucket, reports *report.Engine) *Archiver {
	return &Archiver{bucket: bucket, reports: reports, now: time.Now, parallel: DefaultParallelism}
}

// ArchiveMonth generates the consolidated report for the month and uploads it
// in every format. It returns the object names written.
func (a *Archiver) ArchiveMonth(ctx context.Context, condominiumID int64, year int, month time.Month) ([]string, error) {
	start, end := MonthWindow(year, month)
	rep, err := a.reports.GenerateConsolidatedReport(ctx, condominiumID, start, end)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(Formats))
	for _, format := range Formats {
		body, err := a.reports.ExportReport(ctx, rep, format)
		if err != nil {
			return names, err
		}
		name := ObjectName(condominiumID, year, month, format)
		if err := a.bucket.Put(ctx, name, contentTypes[format], []byte(body)); err != nil {
			return names, err
		}
		names = append(names, name)
	}

	slog.InfoContext(ctx, "Report archived",
		"condominium_id", condominiumID,
		"month", start.MonthKey(),
		"objects", len(names))
	return names, nil
}

// ArchivePreviousMonth archives last month's report for each condominium, at
// most a.parallel at a time. A failing condominium does not stop the others;
// the failures are joined.
func (a *Archiver) ArchivePreviousMonth(ctx context.Context, condominiumIDs []int64) error {
	now := a.now()
	// step back from the 1st so the 31st of a month never skips February
	prev := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)

	var (
		mu   sync.Mutex
		errs []error
		g    errgroup.Group
	)
	g.SetLimit(a.parallel)
	for _, id := range condominiumIDs {
		g.Go(func() error {
			if _, err := a.ArchiveMonth(ctx, id, prev.Year(), prev.Month()); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("archive condominium %d: %w", id, err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// Fetch returns an archived export.
func (a *Archiver) Fetch(ctx context.Context, condominiumID int64, year int, month time.Month, format string) ([]byte, error) {
	if _, ok := contentTypes[format]; !ok {
		return nil, &core.UnsupportedFormatError{Format: format}
	}
	return a.bucket.Get(ctx, ObjectName(condominiumID, year, month, format))
}
