package store

import (
	"sync"

	"github.com/efreitasn/stocksim/internal/domain"
)

// DefaultFillsPerTicker bounds how many fills FillStore keeps per ticker.
const DefaultFillsPerTicker = 100

// FillStore is a thread-safe in-memory journal of applied activities,
// keyed by ticker. Only the most recent fills of each ticker are kept.
type FillStore struct {
	mu    sync.RWMutex
	limit int
	fills map[string][]domain.Fill // ticker → fills (chronological)
}

// NewFillStore creates an empty FillStore keeping up to limit fills per
// ticker. A non-positive limit uses DefaultFillsPerTicker.
func NewFillStore(limit int) *FillStore {
	if limit <= 0 {
		limit = DefaultFillsPerTicker
	}
	return &FillStore{
		limit: limit,
		fills: make(map[string][]domain.Fill),
	}
}

// Record appends a fill to its ticker's list, dropping the oldest one
// once the limit is reached.
func (s *FillStore) Record(f domain.Fill) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := append(s.fills[f.Ticker], f)
	if len(list) > s.limit {
		list = append(list[:0:0], list[len(list)-s.limit:]...)
	}
	s.fills[f.Ticker] = list
}

// ByTicker returns the kept fills for a ticker in chronological order.
// Returns an empty slice if no fills exist for the ticker.
func (s *FillStore) ByTicker(ticker string) []domain.Fill {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fills := s.fills[ticker]
	result := make([]domain.Fill, len(fills))
	copy(result, fills)
	return result
}
