package session

import (
	"sync"

	"rabbit-key-bot/internal/pricing"
)

// PendingOrder is the in-progress purchase for one user: created when a
// duration is chosen, completed when a device count is chosen, read when the
// transaction id comes in.
type PendingOrder struct {
	Duration pricing.Duration
	Devices  int // 0 until chosen
}

// Store keeps one pending order per user. Keyed by telegram id so concurrent
// users never alias each other's order; no cross-user locking beyond the map
// mutex.
type Store struct {
	mu     sync.Mutex
	orders map[int64]PendingOrder
}

func NewStore() *Store {
	return &Store{orders: make(map[int64]PendingOrder)}
}

// StartOrder begins (or restarts) the purchase flow. Restarting overwrites
// any previous pending order.
func (s *Store) StartOrder(userID int64, d pricing.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[userID] = PendingOrder{Duration: d}
}

// SetDevices records the device count for the active order. Returns false if
// no order was started.
func (s *Store) SetDevices(userID int64, devices int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[userID]
	if !ok {
		return false
	}
	order.Devices = devices
	s.orders[userID] = order
	return true
}

// Get returns a copy of the user's pending order.
func (s *Store) Get(userID int64) (PendingOrder, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[userID]
	return order, ok
}

// Clear discards the user's pending order, if any.
func (s *Store) Clear(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.orders, userID)
}
