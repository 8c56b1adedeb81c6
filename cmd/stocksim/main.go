// Command stocksim runs the market and trading sides in one process,
// connected by the in-memory transport.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/efreitasn/stocksim/internal/app"
	"github.com/efreitasn/stocksim/internal/config"
	"github.com/efreitasn/stocksim/internal/logging"
	"github.com/efreitasn/stocksim/internal/transport"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	cfg.Transport = transport.KindMemory
	// One status server per process; it serves the trading side.
	marketCfg := *cfg
	marketCfg.HTTPAddr = ""

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

	bus := transport.NewMemory()
	defer bus.Close()

	market, err := app.NewMarket(&marketCfg, seed, bus, nil, logger)
	if err != nil {
		logger.Error("failed to start market", slog.String("error", err.Error()))
		os.Exit(1)
	}
	trading, err := app.NewTrading(cfg, seed, bus, os.Stdout, logger)
	if err != nil {
		logger.Error("failed to start trading", slog.String("error", err.Error()))
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return trading.Run(gctx) })
	g.Go(func() error { return market.Run(gctx) })
	if err := g.Wait(); err != nil {
		logger.Error("simulation stopped with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("simulation closed")
}
