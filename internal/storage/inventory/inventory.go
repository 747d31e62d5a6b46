// Package inventory holds the client's cached view of item ownership.
// The view is optimistic: local trades mutate it immediately and the next
// authoritative fetch from the backend overwrites it.
package inventory

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/trovapay/trova/internal/domain"
)

// ErrItemNotFound is returned when an item id is not in the cached view.
var ErrItemNotFound = errors.New("item not found in inventory")

// Store is an insertion-ordered, mutex-guarded item cache. It is owned
// state injected into the allocator and projector rather than a process
// global.
type Store struct {
	mu    sync.RWMutex
	items map[string]domain.Item
	order []string
}

// NewStore creates an empty inventory cache.
func NewStore() *Store {
	return &Store{items: make(map[string]domain.Item)}
}

// SetAll replaces the whole view with an authoritative snapshot.
func (s *Store) SetAll(items []domain.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = make(map[string]domain.Item, len(items))
	s.order = s.order[:0]
	for _, item := range items {
		if _, ok := s.items[item.ID]; !ok {
			s.order = append(s.order, item.ID)
		}
		s.items[item.ID] = item
	}
}

// Get returns the cached item by id.
func (s *Store) Get(itemID string) (domain.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[itemID]
	if !ok {
		return domain.Item{}, errors.Wrap(ErrItemNotFound, itemID)
	}
	return item, nil
}

// ItemsOwnedBy returns the cached items owned by ownerID, insertion order.
func (s *Store) ItemsOwnedBy(ownerID string) []domain.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()

	owned := make([]domain.Item, 0, len(s.order))
	for _, id := range s.order {
		if item, ok := s.items[id]; ok && item.OwnerID == ownerID {
			owned = append(owned, item)
		}
	}
	return owned
}

// Upsert writes an item into the view.
func (s *Store) Upsert(item domain.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[item.ID]; !ok {
		s.order = append(s.order, item.ID)
	}
	s.items[item.ID] = item
}

// Remove deletes an item from the view. Removing an unknown id is a no-op:
// the view may already have been refreshed from the backend.
func (s *Store) Remove(itemID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[itemID]; !ok {
		return
	}
	delete(s.items, itemID)
	for i, id := range s.order {
		if id == itemID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}
