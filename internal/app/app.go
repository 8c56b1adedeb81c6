// Package app wires the market and trading sides into runnable processes.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/efreitasn/stocksim/internal/config"
	"github.com/efreitasn/stocksim/internal/engine"
	"github.com/efreitasn/stocksim/internal/handler"
	"github.com/efreitasn/stocksim/internal/metrics"
	"github.com/efreitasn/stocksim/internal/scheduler"
	"github.com/efreitasn/stocksim/internal/service"
	"github.com/efreitasn/stocksim/internal/store"
	"github.com/efreitasn/stocksim/internal/transport"
)

// PCG stream selectors, so both sides draw independent sequences from one
// RANDOM_SEED.
const (
	marketStream  = 1
	tradingStream = 2
)

// NewRand returns the random source for one side. A zero seed is
// replaced by the current time.
func NewRand(seed uint64, stream uint64) *rand.Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, stream))
}

// Market is a fully wired market-side process.
type Market struct {
	Registry *engine.Registry
	Fills    *store.FillStore
	Service  *service.MarketService
	Metrics  *metrics.Metrics

	scheduler *scheduler.Scheduler
	router    http.Handler
	cfg       *config.Config
	logger    *slog.Logger
}

// NewMarket builds the registry from seed and wires the market service
// onto tr. console receives the per-round price table; nil disables it.
func NewMarket(cfg *config.Config, seed config.Seed, tr transport.Transport, console io.Writer, logger *slog.Logger) (*Market, error) {
	registry, err := engine.NewRegistry(seed.Instruments)
	if err != nil {
		return nil, fmt.Errorf("seed registry: %w", err)
	}
	clock, err := cfg.Clock()
	if err != nil {
		return nil, err
	}

	logger = logger.With(slog.String("side", "market"))
	m := metrics.New("market")
	fills := store.NewFillStore(store.DefaultFillsPerTicker)
	processor := engine.NewProcessor(registry, engine.NewMemoryGuard(), logger)
	processor.SetJournal(fills)
	svc := service.NewMarketService(
		registry,
		engine.NewFluctuator(NewRand(cfg.RandomSeed, marketStream), engine.DefaultMaxPercent),
		processor,
		tr,
		service.MarketOptions{
			SnapshotTopic: cfg.SnapshotTopic,
			ActivityTopic: cfg.ActivityTopic,
			ConsumerGroup: MarketGroup(cfg),
			Console:       console,
		},
		m,
		logger,
	)

	return &Market{
		Registry:  registry,
		Fills:     fills,
		Service:   svc,
		Metrics:   m,
		scheduler: scheduler.New("market", clock, cfg.TickDelay, svc.Round, logger),
		router:    handler.NewMarketRouter(registry, fills, m, logger),
		cfg:       cfg,
		logger:    logger,
	}, nil
}

// Router returns the market status API.
func (m *Market) Router() http.Handler {
	return m.router
}

// Run starts the activity consumer and the status server, then runs
// rounds until market close. The consumer stops once the scheduler is
// done.
func (m *Market) Run(ctx context.Context) error {
	return run(ctx, m.cfg, m.logger, m.scheduler.Run, m.Service.ConsumeActivities, m.router)
}

// Trading is a fully wired trading-side process.
type Trading struct {
	Brokers *store.BrokerStore
	Replica *store.Replica
	Service *service.TradingService
	Metrics *metrics.Metrics

	scheduler *scheduler.Scheduler
	router    http.Handler
	cfg       *config.Config
	logger    *slog.Logger
}

// NewTrading builds the roster from seed and wires the trading service
// onto tr. Every trading process gets a fresh session and its own
// snapshot consumer group.
func NewTrading(cfg *config.Config, seed config.Seed, tr transport.Transport, console io.Writer, logger *slog.Logger) (*Trading, error) {
	brokers, err := store.NewRoster(seed.Brokers)
	if err != nil {
		return nil, fmt.Errorf("seed roster: %w", err)
	}
	clock, err := cfg.Clock()
	if err != nil {
		return nil, err
	}

	session := uuid.NewString()
	logger = logger.With(slog.String("side", "trading"))
	replica := store.NewReplica()
	m := metrics.New("trading")
	svc := service.NewTradingService(brokers, replica, NewRand(cfg.RandomSeed, tradingStream), tr,
		service.TradingOptions{
			SnapshotTopic: cfg.SnapshotTopic,
			ActivityTopic: cfg.ActivityTopic,
			ConsumerGroup: TradingGroup(cfg, session),
			Session:       session,
			BrokerDelay:   cfg.BrokerDelay,
			ReadyPoll:     cfg.ReadyPoll,
			Console:       console,
			ReplayBacklog: cfg.Transport == transport.KindMemory,
		},
		m,
		logger,
	)

	return &Trading{
		Brokers:   brokers,
		Replica:   replica,
		Service:   svc,
		Metrics:   m,
		scheduler: scheduler.New("trading", clock, cfg.TickDelay, svc.Round, logger),
		router:    handler.NewTradingRouter(brokers, replica, session, m, logger),
		cfg:       cfg,
		logger:    logger,
	}, nil
}

// Router returns the trading status API.
func (t *Trading) Router() http.Handler {
	return t.router
}

// Run prints the opening accounts, starts the snapshot consumer and the
// status server, then runs rounds until market close.
func (t *Trading) Run(ctx context.Context) error {
	t.Service.PrintAccounts("Initial Broker Accounts")
	err := run(ctx, t.cfg, t.logger, t.scheduler.Run, t.Service.ConsumeSnapshots, t.router)
	t.Service.PrintAccounts("Final Broker Accounts")
	return err
}

// MarketGroup is the consumer group shared by every market process.
func MarketGroup(cfg *config.Config) string {
	return cfg.ConsumerGroup + "-market"
}

// TradingGroup is the snapshot consumer group of one trading session.
func TradingGroup(cfg *config.Config, session string) string {
	return cfg.ConsumerGroup + "-trading-" + session
}

// run joins the scheduler, the consumer and the optional status server.
// A cancelled ctx is a normal shutdown and yields nil.
func run(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	schedule func(context.Context) error,
	consume func(context.Context) error,
	router http.Handler,
) error {
	g, gctx := errgroup.WithContext(ctx)
	stopCtx, stop := context.WithCancel(gctx)
	defer stop()

	g.Go(func() error {
		return consume(stopCtx)
	})
	g.Go(func() error {
		defer stop()
		return schedule(stopCtx)
	})
	if cfg.HTTPAddr != "" {
		g.Go(func() error {
			return Serve(stopCtx, cfg, router, logger)
		})
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// Serve runs the status server on cfg.HTTPAddr until ctx is done, then
// shuts it down gracefully.
func Serve(ctx context.Context, cfg *config.Config, router http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", slog.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("status server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
	}
	logger.Info("server stopped")
	return nil
}

// Healthcheck probes /healthz on addr and returns the process exit code.
func Healthcheck(addr string) int {
	if addr == "" {
		return 1
	}
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get("http://" + addr + "/healthz")
	if err != nil {
		return 1
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 1
	}
	return 0
}
