package domain

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

// Broker is a simulated trader with its own cash and holdings ledger.
// Holdings never contain an entry with quantity 0.
//
// Ledger methods do not lock; callers that share a broker across
// goroutines hold Mu for the duration of a read or a decide/act pass.
type Broker struct {
	ID       int
	Cash     decimal.Decimal
	Variant  Variant
	Holdings map[string]int64
	Mu       sync.Mutex

	seq uint64
}

// NewBroker creates a broker with an empty holdings map.
func NewBroker(id int, cash decimal.Decimal, variant Variant) *Broker {
	return &Broker{
		ID:       id,
		Cash:     cash,
		Variant:  variant,
		Holdings: make(map[string]int64),
	}
}

// Buy debits price × qty from cash and credits qty units of inst. The
// inventory check uses the replica's last known availability, so a local
// success can still be rejected later by the market side.
func (b *Broker) Buy(inst Instrument, qty int64) error {
	if qty <= 0 {
		return ErrNonPositiveQuantity
	}
	cost := Cost(inst.Price, qty)
	if b.Cash.LessThan(cost) {
		return ErrInsufficientFunds
	}
	if inst.Available < qty {
		return ErrInsufficientInventory
	}
	b.Cash = b.Cash.Sub(cost)
	if b.Holdings == nil {
		b.Holdings = make(map[string]int64)
	}
	b.Holdings[inst.Ticker] += qty
	return nil
}

// Sell credits price × qty to cash and removes qty units of inst. The
// holding entry is deleted once it reaches zero.
func (b *Broker) Sell(inst Instrument, qty int64) error {
	if qty <= 0 {
		return ErrNonPositiveQuantity
	}
	held, ok := b.Holdings[inst.Ticker]
	if !ok {
		return ErrNotHeld
	}
	if held < qty {
		return ErrInsufficientHoldings
	}
	b.Cash = b.Cash.Add(Cost(inst.Price, qty))
	if held == qty {
		delete(b.Holdings, inst.Ticker)
	} else {
		b.Holdings[inst.Ticker] = held - qty
	}
	return nil
}

// HoldingsValue sums quantity × replica price over tickers present in both
// the holdings and the replica. Tickers missing from the replica count as 0.
func (b *Broker) HoldingsValue(replica []Instrument) decimal.Decimal {
	total := decimal.Zero
	for _, inst := range replica {
		if qty, ok := b.Holdings[inst.Ticker]; ok {
			total = total.Add(Cost(inst.Price, qty))
		}
	}
	return total
}

// TotalValue returns cash plus HoldingsValue.
func (b *Broker) TotalValue(replica []Instrument) decimal.Decimal {
	return b.Cash.Add(b.HoldingsValue(replica))
}

// HasPosition reports whether any holding has a positive quantity.
func (b *Broker) HasPosition() bool {
	for _, qty := range b.Holdings {
		if qty > 0 {
			return true
		}
	}
	return false
}

// NextSeq returns the next per-broker activity sequence number, starting at 1.
func (b *Broker) NextSeq() uint64 {
	b.seq++
	return b.seq
}

// Tickers returns the held tickers in ascending order.
func (b *Broker) Tickers() []string {
	tickers := make([]string, 0, len(b.Holdings))
	for t := range b.Holdings {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)
	return tickers
}

// String renders the broker the way account listings print it, e.g.
// "Broker 1: Cash: $10000.00, Holdings: {AAPL: 3}".
func (b *Broker) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Broker %d: Cash: $%s, Holdings: {", b.ID, Dollars(b.Cash))
	for i, t := range b.Tickers() {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s: %d", t, b.Holdings[t])
	}
	sb.WriteString("}")
	return sb.String()
}
