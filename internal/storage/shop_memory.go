package storage

import (
	"context"
	"sync"

	"github.com/pagepulse/pagepulse/internal/models"
)

// InMemoryShopStore implements ShopStore in memory. Used in tests and when
// the service runs without a database.
type InMemoryShopStore struct {
	mu    sync.RWMutex
	shops map[string]models.ShopCredentials
}

func NewInMemoryShopStore() *InMemoryShopStore {
	return &InMemoryShopStore{shops: make(map[string]models.ShopCredentials)}
}

func (s *InMemoryShopStore) Get(_ context.Context, shop string) (*models.ShopCredentials, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.shops[shop]
	if !ok {
		return nil, nil
	}
	out := c
	return &out, nil
}

func (s *InMemoryShopStore) Upsert(_ context.Context, creds *models.ShopCredentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shops[creds.Shop] = *creds
	return nil
}

func (s *InMemoryShopStore) Delete(_ context.Context, shop string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.shops, shop)
	return nil
}
