// Command condofin is the operator CLI for the condominium ledger: reports,
// charts, balances, transactions, invoices and report archives.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"

	"condofin/internal/cli"
	"condofin/internal/core"
	clog "condofin/internal/log"
)

const usage = `usage: condofin <command> [flags]

commands:
  report    generate a revenue, expense, delinquency or consolidated report
  chart     generate chart data
  balance   print the signed balance of a condominium
  record    record a transaction
  delete    delete a transaction
  invoice   generate an invoice and its pending revenue transaction
  pay       register a payment against an invoice
  sweep     mark invoices past due as overdue
  archive   upload or fetch a monthly consolidated report archive

run "condofin <command> -h" for command flags`

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(clog.ComponentCLI)

	ctx := clog.WithRunID(clog.WithContext(context.Background(), logger), uuid.NewString())
	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		logger.ErrorContext(ctx, "Command failed", "error", err)
		os.Exit(exitCode(err))
	}
}

type command func(ctx context.Context, a *app, args []string) error

var commands = map[string]command{
	"report":  reportCmd,
	"chart":   chartCmd,
	"balance": balanceCmd,
	"record":  recordCmd,
	"delete":  deleteCmd,
	"invoice": invoiceCmd,
	"pay":     payCmd,
	"sweep":   sweepCmd,
	"archive": archiveCmd,
}

var (
	errUsage = errors.New("usage")
	// errHelp stops a command after its flag help was printed.
	errHelp = errors.New("help requested")
)

func run(ctx context.Context, args []string, stdout io.Writer) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "help" {
		fmt.Fprintln(stdout, usage)
		if len(args) == 0 {
			return errUsage
		}
		return nil
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintln(stdout, usage)
		return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return err
	}
	logger := clog.FromContext(ctx)
	res, err := cli.OpenBackend(ctx, logger.Logger, cfg)
	if err != nil {
		return err
	}
	defer res.Close()

	a := newApp(res, cfg, logger, stdout)
	if err := cmd(ctx, a, args[1:]); err != nil && !errors.Is(err, errHelp) {
		return err
	}
	return nil
}

// exitCode is 2 for bad input and 1 for everything else.
func exitCode(err error) int {
	var verr *core.ValidationError
	var ferr *core.UnsupportedFormatError
	if errors.Is(err, errUsage) || errors.As(err, &verr) || errors.As(err, &ferr) {
		return 2
	}
	return 1
}
