package engine

import (
	"context"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/shopspring/decimal"
	"pgregory.net/rapid"

	"github.com/efreitasn/stocksim/internal/domain"
)

// Prices never fall below the floor, whatever sequence of moves is drawn.
func TestProperty_FluctuatedPriceRespectsFloor(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 10).Draw(t, "instruments")
		seed := make([]domain.Instrument, n)
		for i := range seed {
			cents := rapid.Int64Range(100, 1_000_000).Draw(t, fmt.Sprintf("price-%d", i))
			seed[i] = domain.Instrument{Ticker: fmt.Sprintf("T%02d", i), Price: decimal.New(cents, -2), Available: 100}
		}
		r, err := NewRegistry(seed)
		if err != nil {
			t.Fatalf("NewRegistry: %v", err)
		}

		f := NewFluctuator(rand.New(rand.NewPCG(rapid.Uint64().Draw(t, "s1"), rapid.Uint64().Draw(t, "s2"))), 0)
		rounds := rapid.IntRange(1, 40).Draw(t, "rounds")
		for i := 0; i < rounds; i++ {
			for _, in := range r.Fluctuate(f.Draw) {
				if in.Price.LessThan(domain.MinPrice) {
					t.Fatalf("round %d: %s price %s below floor", i, in.Ticker, in.Price)
				}
				if in.Available != 100 {
					t.Fatalf("round %d: fluctuation changed %s quantity to %d", i, in.Ticker, in.Available)
				}
			}
		}
	})
}

// Available quantity stays non-negative under any mix of orders.
func TestProperty_InventoryNeverNegative(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		start := rapid.Int64Range(0, 50).Draw(t, "start")
		r, err := NewRegistry([]domain.Instrument{{Ticker: "XYZ", Price: decimal.NewFromInt(10), Available: start}})
		if err != nil {
			t.Fatalf("NewRegistry: %v", err)
		}
		p := NewProcessor(r, nil, discardLogger())

		expected := start
		steps := rapid.IntRange(1, 100).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			qty := rapid.Int64Range(1, 20).Draw(t, "qty")
			action := domain.ActionSell
			if rapid.Bool().Draw(t, "buy") {
				action = domain.ActionBuy
			}
			outcome, err := p.Apply(context.Background(), domain.Activity{BrokerID: 1, Action: action, Ticker: "XYZ", Quantity: qty})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			switch {
			case action == domain.ActionSell:
				expected += qty
			case outcome == OutcomeApplied:
				expected -= qty
			case expected >= qty:
				t.Fatalf("buy of %d rejected with %d available", qty, expected)
			}
			in, _ := r.Get("XYZ")
			if in.Available < 0 {
				t.Fatalf("available went negative: %d", in.Available)
			}
			if in.Available != expected {
				t.Fatalf("available = %d, want %d", in.Available, expected)
			}
		}
	})
}
