package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/efreitasn/stocksim/internal/domain"
)

// Outcome classifies what happened to an applied activity.
type Outcome int

const (
	OutcomeApplied Outcome = iota
	OutcomeUnknownTicker
	OutcomeUnknownAction
	OutcomeInsufficientInventory
	OutcomeInvalidQuantity
	OutcomeDuplicate
)

func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeUnknownTicker:
		return "unknown_ticker"
	case OutcomeUnknownAction:
		return "unknown_action"
	case OutcomeInsufficientInventory:
		return "insufficient_inventory"
	case OutcomeInvalidQuantity:
		return "invalid_quantity"
	case OutcomeDuplicate:
		return "duplicate"
	}
	return "unknown"
}

// SequenceGuard decides whether an idempotent activity has been seen
// before. Observe records seq as seen and reports whether it was new.
type SequenceGuard interface {
	Observe(ctx context.Context, session string, brokerID int, seq uint64) (bool, error)
}

// Journal receives every fill the processor applied.
type Journal interface {
	Record(f domain.Fill)
}

// Processor applies inbound broker activities to the registry one at a
// time. Business rejections are reported as outcomes, never as errors.
type Processor struct {
	registry *Registry
	guard    SequenceGuard
	journal  Journal
	logger   *slog.Logger
}

// NewProcessor creates a Processor. guard may be nil, in which case
// every delivery is applied, including redelivered copies.
func NewProcessor(registry *Registry, guard SequenceGuard, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{registry: registry, guard: guard, logger: logger}
}

// SetJournal makes p record every applied activity in j. It must be
// called before the first Apply.
func (p *Processor) SetJournal(j Journal) {
	p.journal = j
}

// Apply mutates the registry according to a. Buys decrement the
// available quantity only when enough units remain; sells increment it
// unconditionally. The error return is reserved for guard failures.
func (p *Processor) Apply(ctx context.Context, a domain.Activity) (Outcome, error) {
	attrs := []any{
		slog.Int("broker_id", a.BrokerID),
		slog.String("action", string(a.Action)),
		slog.String("stock_id", a.Ticker),
		slog.Int64("quantity", a.Quantity),
	}

	if a.Action != domain.ActionBuy && a.Action != domain.ActionSell {
		p.logger.Warn("invalid action", attrs...)
		return OutcomeUnknownAction, nil
	}
	if a.Quantity <= 0 {
		p.logger.Warn("invalid quantity", attrs...)
		return OutcomeInvalidQuantity, nil
	}
	if _, ok := p.registry.Get(a.Ticker); !ok {
		p.logger.Warn("unknown stock", attrs...)
		return OutcomeUnknownTicker, nil
	}

	if p.guard != nil && a.Idempotent() {
		fresh, err := p.guard.Observe(ctx, a.Session, a.BrokerID, a.Seq)
		if err != nil {
			return 0, err
		}
		if !fresh {
			p.logger.Info("duplicate activity dropped", append(attrs, slog.Uint64("seq", a.Seq))...)
			return OutcomeDuplicate, nil
		}
	}

	var (
		in  domain.Instrument
		err error
	)
	if a.Action == domain.ActionBuy {
		in, err = p.registry.Withdraw(a.Ticker, a.Quantity)
	} else {
		in, err = p.registry.Deposit(a.Ticker, a.Quantity)
	}
	switch {
	case errors.Is(err, domain.ErrInsufficientInventory):
		p.logger.Info("insufficient inventory", append(attrs, slog.Int64("available", in.Available))...)
		return OutcomeInsufficientInventory, nil
	case errors.Is(err, domain.ErrUnknownTicker):
		return OutcomeUnknownTicker, nil
	case err != nil:
		return 0, err
	}

	p.logger.Info("activity applied", append(attrs, slog.Int64("available", in.Available))...)
	if p.journal != nil {
		p.journal.Record(domain.Fill{
			BrokerID:  a.BrokerID,
			Action:    a.Action,
			Ticker:    a.Ticker,
			Quantity:  a.Quantity,
			Available: in.Available,
			AppliedAt: time.Now(),
		})
	}
	return OutcomeApplied, nil
}

// MemoryGuard keeps the highest sequence number seen per (session,
// broker) in memory. Sequence numbers from one session arrive in order on
// a FIFO stream, so anything at or below the high-water mark is a replay.
type MemoryGuard struct {
	mu   sync.Mutex
	high map[guardKey]uint64
}

type guardKey struct {
	session  string
	brokerID int
}

// NewMemoryGuard creates an empty MemoryGuard.
func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{high: make(map[guardKey]uint64)}
}

// Observe implements SequenceGuard.
func (g *MemoryGuard) Observe(_ context.Context, session string, brokerID int, seq uint64) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	k := guardKey{session: session, brokerID: brokerID}
	if seq <= g.high[k] {
		return false, nil
	}
	g.high[k] = seq
	return true, nil
}
