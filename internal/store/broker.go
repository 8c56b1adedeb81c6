package store

import (
	"slices"
	"sync"

	"github.com/efreitasn/stocksim/internal/domain"
)

// BrokerStore is the trading side's fixed broker roster, keyed by
// broker ID and iterated in registration order.
//
// The store lock only guards the roster itself. Each broker's ledger is
// guarded by its own Mu.
type BrokerStore struct {
	mu      sync.RWMutex
	brokers map[int]*domain.Broker
	order   []int
}

// NewBrokerStore creates an empty BrokerStore.
func NewBrokerStore() *BrokerStore {
	return &BrokerStore{
		brokers: make(map[int]*domain.Broker),
	}
}

// NewRoster creates a store seeded with one broker per seed entry.
func NewRoster(seeds []domain.BrokerSeed) (*BrokerStore, error) {
	s := NewBrokerStore()
	for _, seed := range seeds {
		if seed.Cash.IsNegative() {
			return nil, &domain.ValidationError{Message: "broker cash must be >= 0"}
		}
		if err := s.Create(domain.NewBroker(seed.ID, seed.Cash, seed.Variant)); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Create adds a broker to the store. It returns
// domain.ErrDuplicateBroker if a broker with the same ID
// already exists.
func (s *BrokerStore) Create(b *domain.Broker) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.brokers[b.ID]; exists {
		return domain.ErrDuplicateBroker
	}
	s.brokers[b.ID] = b
	s.order = append(s.order, b.ID)
	return nil
}

// Get retrieves a broker by ID. It returns
// domain.ErrBrokerNotFound if the broker does not exist.
func (s *BrokerStore) Get(id int) (*domain.Broker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.brokers[id]
	if !ok {
		return nil, domain.ErrBrokerNotFound
	}
	return b, nil
}

// Exists returns true if a broker with the given ID exists.
func (s *BrokerStore) Exists(id int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.brokers[id]
	return ok
}

// All returns the brokers in registration order.
func (s *BrokerStore) All() []*domain.Broker {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Broker, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.brokers[id])
	}
	return out
}

// IDs returns the broker IDs in ascending order.
func (s *BrokerStore) IDs() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := slices.Clone(s.order)
	slices.Sort(ids)
	return ids
}

// Len returns the number of brokers.
func (s *BrokerStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}
