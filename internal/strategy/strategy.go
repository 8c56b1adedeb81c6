// Package strategy implements the per-variant broker decision logic.
//
// Every round a broker runs two phases. Decide picks a high-level intent
// without touching the ledger. Act, run for any intent other than Hold,
// selects a concrete instrument and quantity and mutates the ledger. The
// concrete action Act takes is variant specific and can differ from the
// decided intent; a RiskAverse broker that decided to sell may end up
// buying when none of its holdings can be sold.
package strategy

import (
	"cmp"
	"slices"

	"github.com/efreitasn/stocksim/internal/domain"
)

// Source is the subset of *rand.Rand the strategies draw from.
type Source interface {
	IntN(n int) int
	Float64() float64
}

// Quantity bounds per variant.
const (
	AggressiveMaxQty  = 5
	RiskAverseMaxSell = 3
	RiskAverseMaxBuy  = 2
	RandomMaxQty      = 3
)

const randomBuyProbability = 0.5

// Decide returns the broker's intent for this round. It never mutates b.
func Decide(b *domain.Broker, rng Source) domain.Intent {
	switch b.Variant {
	case domain.VariantAggressive:
		if b.Cash.IsPositive() {
			return domain.IntentBuy
		}
		return domain.IntentHold
	case domain.VariantRiskAverse:
		if b.HasPosition() {
			return domain.IntentSell
		}
		if b.Cash.IsPositive() {
			return domain.IntentBuy
		}
		return domain.IntentHold
	case domain.VariantRandom:
		switch rng.IntN(3) {
		case 0:
			return domain.IntentBuy
		case 1:
			return domain.IntentSell
		}
	}
	return domain.IntentHold
}

// Act runs the variant's action policy against replica and mutates the
// ledger. It returns the resulting activity when a buy or sell succeeded.
// A failed attempt is a silent no-op. replica is not modified.
func Act(b *domain.Broker, replica []domain.Instrument, rng Source) (domain.Activity, bool) {
	if len(replica) == 0 {
		return domain.Activity{}, false
	}
	switch b.Variant {
	case domain.VariantAggressive:
		return actAggressive(b, replica, rng)
	case domain.VariantRiskAverse:
		return actRiskAverse(b, replica, rng)
	case domain.VariantRandom:
		return actRandom(b, replica, rng)
	}
	return domain.Activity{}, false
}

// Step runs Decide and, unless the intent is Hold, Act.
func Step(b *domain.Broker, replica []domain.Instrument, rng Source) (domain.Intent, domain.Activity, bool) {
	intent := Decide(b, rng)
	if intent == domain.IntentHold {
		return intent, domain.Activity{}, false
	}
	a, ok := Act(b, replica, rng)
	return intent, a, ok
}

// Aggressive buys the most expensive instrument it can afford, drawing a
// fresh quantity for each candidate.
func actAggressive(b *domain.Broker, replica []domain.Instrument, rng Source) (domain.Activity, bool) {
	for _, inst := range byPrice(replica, true) {
		qty := drawQty(rng, AggressiveMaxQty)
		if b.Buy(inst, qty) == nil {
			return activity(b, domain.ActionBuy, inst, qty), true
		}
	}
	return domain.Activity{}, false
}

// RiskAverse unloads its cheapest sellable holding first and only buys
// when no sell went through.
func actRiskAverse(b *domain.Broker, replica []domain.Instrument, rng Source) (domain.Activity, bool) {
	sorted := byPrice(replica, false)
	if b.HasPosition() {
		for _, inst := range sorted {
			if _, held := b.Holdings[inst.Ticker]; !held {
				continue
			}
			qty := drawQty(rng, RiskAverseMaxSell)
			if b.Sell(inst, qty) == nil {
				return activity(b, domain.ActionSell, inst, qty), true
			}
		}
	}
	for _, inst := range sorted {
		qty := drawQty(rng, RiskAverseMaxBuy)
		if b.Buy(inst, qty) == nil {
			return activity(b, domain.ActionBuy, inst, qty), true
		}
	}
	return domain.Activity{}, false
}

// Random makes exactly one attempt on one uniformly chosen instrument.
func actRandom(b *domain.Broker, replica []domain.Instrument, rng Source) (domain.Activity, bool) {
	inst := replica[rng.IntN(len(replica))]
	buy := rng.Float64() < randomBuyProbability
	qty := drawQty(rng, RandomMaxQty)
	if buy {
		if b.Buy(inst, qty) == nil {
			return activity(b, domain.ActionBuy, inst, qty), true
		}
		return domain.Activity{}, false
	}
	if b.Sell(inst, qty) == nil {
		return activity(b, domain.ActionSell, inst, qty), true
	}
	return domain.Activity{}, false
}

// drawQty returns a quantity uniform in [1, upper].
func drawQty(rng Source, upper int) int64 {
	return int64(1 + rng.IntN(upper))
}

// byPrice returns a sorted copy of replica. Equal prices keep ticker order.
func byPrice(replica []domain.Instrument, descending bool) []domain.Instrument {
	out := slices.Clone(replica)
	slices.SortStableFunc(out, func(a, b domain.Instrument) int {
		c := a.Price.Cmp(b.Price)
		if descending {
			c = -c
		}
		if c != 0 {
			return c
		}
		return cmp.Compare(a.Ticker, b.Ticker)
	})
	return out
}

func activity(b *domain.Broker, action domain.Action, inst domain.Instrument, qty int64) domain.Activity {
	return domain.Activity{BrokerID: b.ID, Action: action, Ticker: inst.Ticker, Quantity: qty}
}
