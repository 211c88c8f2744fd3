package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/iudanet/bingo/internal/config"
	"github.com/iudanet/bingo/internal/ctl"
	"github.com/iudanet/bingo/internal/iocli"
	"github.com/iudanet/bingo/internal/logging"
	"github.com/iudanet/bingo/internal/password"
	"github.com/iudanet/bingo/internal/server"
	"github.com/iudanet/bingo/internal/server/storage/sqlite"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	console := iocli.NewStdio()

	cfg, opts, err := config.Load(os.Args[1:], os.Getenv, os.Stderr)
	if err != nil {
		if errors.Is(err, config.ErrHelp) {
			ctl.PrintUsage(console)
			return 0
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	if opts.ShowVersion {
		printVersion()
		return 0
	}

	if len(opts.Args) == 0 {
		ctl.PrintUsage(console)
		return 2
	}

	logger, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hasher, err := password.NewHasher(cfg.Hash.PasswordOptions())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	var c *ctl.Ctl
	if ctl.NeedsStorage(opts.Args) {
		db, err := sqlite.New(ctx, cfg.Database.Path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
			return 1
		}
		defer func() {
			if err := db.Close(); err != nil {
				logger.Error("failed to close database", slog.Any("error", err))
			}
		}()

		sessions, closer, err := server.OpenSessionStore(ctx, cfg, db)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open session store: %v\n", err)
			return 1
		}
		if closer != nil {
			defer func() {
				if err := closer.Close(); err != nil {
					logger.Error("failed to close session store", slog.Any("error", err))
				}
			}()
		}

		c = ctl.New(console, logger, hasher, db, sessions)
	} else {
		c = ctl.New(console, logger, hasher, nil, nil)
	}

	if err := c.Run(ctx, opts.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, ctl.ErrUsage) {
			ctl.PrintUsage(console)
			return 2
		}
		return 1
	}

	return 0
}

func printVersion() {
	fmt.Printf("Bingo admin tool\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
