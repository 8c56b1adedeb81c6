package strategy

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/shopspring/decimal"
	"pgregory.net/rapid"

	"github.com/efreitasn/stocksim/internal/domain"
)

// Any emitted activity matches the ledger change it came from, and cash
// never goes negative.
func TestProperty_ActivityMatchesLedgerDelta(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 8).Draw(t, "instruments")
		replica := make([]domain.Instrument, n)
		for i := range replica {
			replica[i] = domain.Instrument{
				Ticker:    fmt.Sprintf("T%d", i),
				Price:     decimal.New(rapid.Int64Range(100, 50_000).Draw(t, "price"), -2),
				Available: rapid.Int64Range(0, 10).Draw(t, "available"),
			}
		}
		variant := rapid.SampledFrom([]domain.Variant{
			domain.VariantAggressive, domain.VariantRiskAverse, domain.VariantRandom,
		}).Draw(t, "variant")
		b := domain.NewBroker(1, decimal.NewFromInt(rapid.Int64Range(0, 2000).Draw(t, "cash")), variant)
		rng := rand.New(rand.NewPCG(rapid.Uint64().Draw(t, "s1"), rapid.Uint64().Draw(t, "s2")))

		rounds := rapid.IntRange(1, 30).Draw(t, "rounds")
		for r := 0; r < rounds; r++ {
			cashBefore := b.Cash
			held := make(map[string]int64, len(b.Holdings))
			for k, v := range b.Holdings {
				held[k] = v
			}

			_, a, ok := Step(b, replica, rng)

			if b.Cash.IsNegative() {
				t.Fatalf("round %d: cash went negative: %s", r, b.Cash)
			}
			for k, v := range b.Holdings {
				if v <= 0 {
					t.Fatalf("round %d: holding %s stored with %d", r, k, v)
				}
			}
			if !ok {
				if !b.Cash.Equal(cashBefore) {
					t.Fatalf("round %d: cash changed without an activity", r)
				}
				continue
			}
			inst, _ := domain.FindInstrument(replica, a.Ticker)
			cost := domain.Cost(inst.Price, a.Quantity)
			switch a.Action {
			case domain.ActionBuy:
				if !b.Cash.Equal(cashBefore.Sub(cost)) {
					t.Fatalf("round %d: buy cash %s, want %s", r, b.Cash, cashBefore.Sub(cost))
				}
				if b.Holdings[a.Ticker] != held[a.Ticker]+a.Quantity {
					t.Fatalf("round %d: buy holdings mismatch", r)
				}
			case domain.ActionSell:
				if !b.Cash.Equal(cashBefore.Add(cost)) {
					t.Fatalf("round %d: sell cash %s, want %s", r, b.Cash, cashBefore.Add(cost))
				}
				if b.Holdings[a.Ticker] != held[a.Ticker]-a.Quantity {
					t.Fatalf("round %d: sell holdings mismatch", r)
				}
			}
		}
	})
}
