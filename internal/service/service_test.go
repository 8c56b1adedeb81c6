package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/stocksim/internal/domain"
	"github.com/efreitasn/stocksim/internal/engine"
	"github.com/efreitasn/stocksim/internal/metrics"
	"github.com/efreitasn/stocksim/internal/protocol"
	"github.com/efreitasn/stocksim/internal/store"
	"github.com/efreitasn/stocksim/internal/transport"
)

const (
	marketGroup  = "market"
	tradingGroup = "trading"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// midpoint makes every fluctuation draw exactly 0%.
type midpoint struct{}

func (midpoint) Float64() float64 { return 0.5 }

// fixedInts returns the same IntN draw every time, reduced modulo n.
type fixedInts struct {
	v int
	f float64
}

func (s fixedInts) IntN(n int) int   { return s.v % n }
func (s fixedInts) Float64() float64 { return s.f }

func newMarket(t *testing.T, bus transport.Transport, guard engine.SequenceGuard, seed ...domain.Instrument) (*MarketService, *engine.Registry, *metrics.Metrics) {
	t.Helper()
	registry, err := engine.NewRegistry(seed)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	m := metrics.New("market")
	svc := NewMarketService(
		registry,
		engine.NewFluctuator(midpoint{}, 0),
		engine.NewProcessor(registry, guard, discardLogger()),
		bus,
		MarketOptions{ConsumerGroup: marketGroup},
		m,
		discardLogger(),
	)
	return svc, registry, m
}

func newTrading(t *testing.T, bus transport.Transport, rng fixedInts, seeds ...domain.BrokerSeed) (*TradingService, *store.BrokerStore, *store.Replica) {
	t.Helper()
	brokers, err := store.NewRoster(seeds)
	if err != nil {
		t.Fatalf("NewRoster: %v", err)
	}
	replica := store.NewReplica()
	svc := NewTradingService(brokers, replica, rng, bus, TradingOptions{
		ConsumerGroup: tradingGroup,
		Session:       "test-session",
	}, metrics.New("trading"), discardLogger())
	return svc, brokers, replica
}

func inst(ticker string, price float64, available int64) domain.Instrument {
	return domain.Instrument{Ticker: ticker, Price: decimal.NewFromFloat(price), Available: available}
}

// eventually polls cond until it holds or a second passes.
func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// run starts fn in the background and stops it at test cleanup.
func run(t *testing.T, fn func(context.Context) error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = fn(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func publishActivity(t *testing.T, bus transport.Transport, a domain.Activity) {
	t.Helper()
	payload, err := protocol.EncodeActivity(a)
	if err != nil {
		t.Fatalf("EncodeActivity: %v", err)
	}
	if err := bus.Publish(context.Background(), protocol.ActivityStream, transport.Message{Value: payload}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
}

func counter(t *testing.T, m *metrics.Metrics, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	var total float64
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	next:
		for _, metric := range mf.GetMetric() {
			for _, lp := range metric.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					continue next
				}
			}
			total += metric.GetCounter().GetValue()
		}
	}
	return total
}
