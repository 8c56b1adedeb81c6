package engine

import (
	"fmt"
	"sync"

	"github.com/google/btree"
	"github.com/shopspring/decimal"

	"github.com/efreitasn/stocksim/internal/domain"
)

// tickerLess orders registry entries by ticker ascending, which is also
// the order snapshots are published in.
func tickerLess(a, b domain.Instrument) bool {
	return a.Ticker < b.Ticker
}

// Registry is the authoritative ticker → instrument mapping on the market
// side. A single mutex covers both price fluctuation and order
// application so the two never interleave on the same instrument. The
// instrument set is fixed at construction.
type Registry struct {
	mu    sync.Mutex
	items *btree.BTreeG[domain.Instrument]
}

// NewRegistry seeds a registry from the catalog. It rejects empty or
// duplicate tickers, prices below domain.MinPrice and negative
// quantities.
func NewRegistry(seed []domain.Instrument) (*Registry, error) {
	const degree = 16
	r := &Registry{items: btree.NewG[domain.Instrument](degree, tickerLess)}
	for _, in := range seed {
		if in.Ticker == "" {
			return nil, &domain.ValidationError{Message: "instrument ticker must not be empty"}
		}
		if in.Price.LessThan(domain.MinPrice) {
			return nil, &domain.ValidationError{
				Message: fmt.Sprintf("instrument %s price %s is below the floor of %s", in.Ticker, in.Price, domain.MinPrice),
			}
		}
		if in.Available < 0 {
			return nil, &domain.ValidationError{
				Message: fmt.Sprintf("instrument %s available quantity must be >= 0", in.Ticker),
			}
		}
		if _, replaced := r.items.ReplaceOrInsert(in); replaced {
			return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateTicker, in.Ticker)
		}
	}
	return r, nil
}

// Len returns the number of instruments.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.items.Len()
}

// Get returns a copy of the instrument with the given ticker.
func (r *Registry) Get(ticker string) (domain.Instrument, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.items.Get(domain.Instrument{Ticker: ticker})
}

// Snapshot returns a copy of every instrument ordered by ticker.
func (r *Registry) Snapshot() []domain.Instrument {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *Registry) snapshotLocked() []domain.Instrument {
	out := make([]domain.Instrument, 0, r.items.Len())
	r.items.Ascend(func(in domain.Instrument) bool {
		out = append(out, in)
		return true
	})
	return out
}

// Fluctuate perturbs every price by draw() percent, computing
// price + price*(pct/100) and clamping at domain.MinPrice. It returns the
// resulting snapshot, copied before the lock is released so the caller
// can publish it without holding the registry.
func (r *Registry) Fluctuate(draw func() float64) []domain.Instrument {
	hundred := decimal.NewFromInt(100)

	r.mu.Lock()
	defer r.mu.Unlock()

	current := r.snapshotLocked()
	for i, in := range current {
		pct := decimal.NewFromFloat(draw())
		change := in.Price.Mul(pct).Div(hundred)
		in.Price = domain.ClampPrice(in.Price.Add(change))
		current[i] = in
		r.items.ReplaceOrInsert(in)
	}
	return current
}

// Withdraw removes qty units from the instrument's available quantity.
// It fails without a partial fill when fewer than qty units remain.
func (r *Registry) Withdraw(ticker string, qty int64) (domain.Instrument, error) {
	if qty <= 0 {
		return domain.Instrument{}, domain.ErrNonPositiveQuantity
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	in, ok := r.items.Get(domain.Instrument{Ticker: ticker})
	if !ok {
		return domain.Instrument{}, domain.ErrUnknownTicker
	}
	if in.Available < qty {
		return in, domain.ErrInsufficientInventory
	}
	in.Available -= qty
	r.items.ReplaceOrInsert(in)
	return in, nil
}

// Deposit adds qty units back to the instrument's available quantity.
// There is no check that the depositor ever held the units.
func (r *Registry) Deposit(ticker string, qty int64) (domain.Instrument, error) {
	if qty <= 0 {
		return domain.Instrument{}, domain.ErrNonPositiveQuantity
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	in, ok := r.items.Get(domain.Instrument{Ticker: ticker})
	if !ok {
		return domain.Instrument{}, domain.ErrUnknownTicker
	}
	in.Available += qty
	r.items.ReplaceOrInsert(in)
	return in, nil
}
