package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/efreitasn/stocksim/internal/domain"
)

// Replica is the trading side's copy of the last received snapshot.
// Each snapshot replaces the previous one wholesale; readers always see
// one complete snapshot.
type Replica struct {
	mu        sync.RWMutex
	items     []domain.Instrument
	version   uint64
	updatedAt time.Time

	ready     chan struct{}
	readyOnce sync.Once
}

// NewReplica creates an empty replica that is not yet ready.
func NewReplica() *Replica {
	return &Replica{ready: make(chan struct{})}
}

// Replace swaps in a new snapshot. The slice is copied, so the caller may
// reuse it. The first call marks the replica ready, even for an empty
// snapshot.
func (r *Replica) Replace(snapshot []domain.Instrument) {
	items := slices.Clone(snapshot)

	r.mu.Lock()
	r.items = items
	r.version++
	r.updatedAt = time.Now()
	r.mu.Unlock()

	r.readyOnce.Do(func() { close(r.ready) })
}

// Current returns a copy of the current snapshot.
func (r *Replica) Current() []domain.Instrument {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.items)
}

// Version returns the number of snapshots applied so far and the time
// the last one arrived.
func (r *Replica) Version() (uint64, time.Time) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version, r.updatedAt
}

// Ready returns a channel closed once the first snapshot arrived.
func (r *Replica) Ready() <-chan struct{} {
	return r.ready
}

// WaitReady blocks until the first snapshot arrived or ctx is done.
// When poll is positive, onWait is called every poll interval while
// waiting.
func (r *Replica) WaitReady(ctx context.Context, poll time.Duration, onWait func()) error {
	select {
	case <-r.ready:
		return nil
	default:
	}

	var tick <-chan time.Time
	if poll > 0 && onWait != nil {
		t := time.NewTicker(poll)
		defer t.Stop()
		tick = t.C
		onWait()
	}

	for {
		select {
		case <-r.ready:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case <-tick:
			onWait()
		}
	}
}
