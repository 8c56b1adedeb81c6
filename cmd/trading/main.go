package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/efreitasn/stocksim/internal/app"
	"github.com/efreitasn/stocksim/internal/config"
	"github.com/efreitasn/stocksim/internal/logging"
	"github.com/efreitasn/stocksim/internal/transport"
)

func main() {
	healthcheck := flag.Bool("healthcheck", false, "Run health check against running server")
	flag.Parse()

	// Handle -healthcheck flag: HTTP GET to HTTP_ADDR/healthz, exit 0/1.
	if *healthcheck {
		os.Exit(app.Healthcheck(os.Getenv("HTTP_ADDR")))
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger, closer := logging.New(logging.Options{
		Level:      cfg.LogLevel,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
	})
	defer closer.Close()
	slog.SetDefault(logger)

	seed, err := config.LoadSeed(cfg.SeedFile)
	if err != nil {
		logger.Error("failed to load seed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	tr, err := transport.Open(connectCtx, cfg.TransportConfig(), logger)
	cancel()
	if err != nil {
		logger.Error("failed to connect to transport", slog.String("transport", cfg.Transport), slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer tr.Close()

	trading, err := app.NewTrading(cfg, seed, tr, os.Stdout, logger)
	if err != nil {
		logger.Error("failed to start trading", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := trading.Run(ctx); err != nil {
		logger.Error("trading stopped with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("trading closed")
}
