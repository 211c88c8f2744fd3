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
	"github.com/iudanet/bingo/internal/logging"
	"github.com/iudanet/bingo/internal/server"
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
	cfg, opts, err := config.Load(os.Args[1:], os.Getenv, os.Stderr)
	if err != nil {
		if errors.Is(err, config.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	// Show version and exit if requested
	if opts.ShowVersion {
		printVersion()
		return 0
	}

	if len(opts.Args) > 0 {
		fmt.Fprintf(os.Stderr, "Error: unexpected arguments %q\n", opts.Args)
		return 2
	}

	logger, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Bingo server starting",
		slog.String("version", Version),
		slog.String("environment", cfg.Environment),
		slog.String("session_backend", cfg.Session.Backend),
	)

	app, err := server.NewApp(ctx, cfg, logger, Version)
	if err != nil {
		logger.Error("Failed to initialize server", slog.Any("error", err))
		return 1
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("Failed to close storage", slog.Any("error", err))
		}
	}()

	if err := app.Run(ctx); err != nil {
		logger.Error("Server stopped with error", slog.Any("error", err))
		return 1
	}

	logger.Info("Server stopped")
	return 0
}

func printVersion() {
	fmt.Printf("Bingo Server\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
