// Command bearbudget is the terminal front end of the ledger: it lists
// accounts, transactions and budgets and runs every ledger mutation
// through the coordinator.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bearbudget/internal/backend"
	"bearbudget/internal/cli"
	"bearbudget/internal/config"
	"bearbudget/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := config.Load()
	logger := cli.SetupLogger(cfg.LogLevel)

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).CreateService(ctx, bcfg)
	if err != nil {
		logger.Error("Failed to initialize ledger backend", "error", err, "backend", bcfg.Type)
		os.Exit(1)
	}
	if res.Cleanup != nil {
		defer func() {
			if err := res.Cleanup(); err != nil {
				logger.Warn("Backend cleanup failed", "error", err)
			}
		}()
	}

	app := &app{
		coord: services.NewCoordinator(res.Service),
		view:  services.NewView("", ""),
		out:   os.Stdout,
		now:   time.Now,
	}
	defer app.view.Close()

	if err := app.run(ctx, os.Args[1], os.Args[2:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `usage: bearbudget <command> [flags]

reads:
  accounts        banks and debts with net worth
  transactions    transactions of one account for a month
  feed            every transaction as stored
  cards           card picker list
  categories      budget categories
  summary         budget summary for a month
  balance         balance derived from the transaction history

writes:
  add-account     create a bank or debt account
  delete-account  delete an account by name
  delete-card     remove a card from the picker, whatever its kind
  add-tx          record a transaction
  update-tx       replace a transaction
  delete-tx       delete a transaction
  adjust          deposit, withdraw, payment or update_balance
  transfer        move funds between accounts
  pay             pay down a debt, optionally from a bank account
`)
}
