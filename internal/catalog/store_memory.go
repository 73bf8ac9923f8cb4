package catalog

import (
	"context"
	"sync"
)

// MemStore keeps the last saved collection in memory. SaveErr and LoadErr,
// when set, are returned instead of touching the stored copy.
type MemStore struct {
	mu       sync.RWMutex
	products []Product
	saves    int

	LoadErr error
	SaveErr error
}

func NewMemStore(seed ...Product) *MemStore {
	return &MemStore{products: cloneProducts(seed)}
}

func (s *MemStore) Ping(ctx context.Context) error { return nil }

func (s *MemStore) Load(ctx context.Context) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.LoadErr != nil {
		return nil, &PersistenceError{Op: "load", Err: s.LoadErr}
	}
	return cloneProducts(s.products), nil
}

func (s *MemStore) Save(ctx context.Context, products []Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.SaveErr != nil {
		return &PersistenceError{Op: "save", Err: s.SaveErr}
	}
	s.products = cloneProducts(products)
	s.saves++
	return nil
}

// Saves reports how many successful saves happened.
func (s *MemStore) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}

func (s *MemStore) SetSaveErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SaveErr = err
}

func cloneProducts(in []Product) []Product {
	out := make([]Product, len(in))
	copy(out, in)
	return out
}
