package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"condofin/internal/backend"
	"condofin/internal/chart"
	"condofin/internal/config"
	"condofin/internal/core"
	clog "condofin/internal/log"
	"condofin/internal/report"

	"github.com/shopspring/decimal"
)

type app struct {
	backend *backend.BackendResult
	cfg     *config.Config
	reports *report.Engine
	charts  *chart.Engine
	logger  *clog.Logger
	out     io.Writer
}

func newApp(res *backend.BackendResult, cfg *config.Config, logger *clog.Logger, out io.Writer) *app {
	return &app{
		backend: res,
		cfg:     cfg,
		reports: report.NewEngine(res.Transactions, logger.WithComponent(clog.ComponentReport)),
		charts:  chart.NewEngine(res.Transactions, logger.WithComponent(clog.ComponentChart)),
		logger:  logger,
		out:     out,
	}
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// dateFlag is a flag.Value holding an ISO date. Unset means the zero date.
type dateFlag struct{ core.Date }

func (d *dateFlag) String() string { return d.Date.String() }

func (d *dateFlag) Set(s string) error {
	v, err := core.ParseDate(s)
	if err != nil {
		return err
	}
	d.Date = v
	return nil
}

// amountFlag is a flag.Value holding a positive amount with dot or comma decimals.
type amountFlag struct{ decimal.Decimal }

func (f *amountFlag) String() string { return f.Decimal.String() }

func (f *amountFlag) Set(s string) error {
	v, err := core.ParseAmount(s)
	if err != nil {
		return fmt.Errorf("%q: %w", s, err)
	}
	f.Decimal = v
	return nil
}

// itemsFlag collects repeated -item "description=amount[xquantity]" values.
type itemsFlag []core.InvoiceItem

func (f *itemsFlag) String() string {
	parts := make([]string, len(*f))
	for i, it := range *f {
		parts[i] = fmt.Sprintf("%s=%sx%d", it.Description, it.Amount, it.Quantity)
	}
	return strings.Join(parts, ",")
}

func (f *itemsFlag) Set(s string) error {
	eq := strings.LastIndex(s, "=")
	if eq <= 0 {
		return fmt.Errorf("item %q: want description=amount[xquantity]", s)
	}
	desc, rest := strings.TrimSpace(s[:eq]), s[eq+1:]
	qty := 1
	if x := strings.LastIndex(rest, "x"); x >= 0 {
		n, err := strconv.Atoi(rest[x+1:])
		if err != nil {
			return fmt.Errorf("item %q: bad quantity: %w", s, err)
		}
		qty, rest = n, rest[:x]
	}
	amount, err := core.ParseAmount(rest)
	if err != nil {
		return fmt.Errorf("item %q: %w", s, err)
	}
	*f = append(*f, core.InvoiceItem{Description: desc, Amount: amount, Quantity: qty})
	return nil
}

// newFlagSet returns a flag set that reports errors instead of exiting.
func newFlagSet(name string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	return fs
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return errHelp
		}
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("%w: unexpected arguments %v", errUsage, fs.Args())
	}
	return nil
}
