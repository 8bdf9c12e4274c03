// internal/services/memory_product_store.go
package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/suppleit/suppleit-backend/internal/models"
)

// MemoryProductStore keeps products in process memory. It has the same
// semantics as GormProductStore and is meant for the CLI's offline mode and
// for tests.
type MemoryProductStore struct {
	mu          sync.RWMutex
	products    map[int64]models.Product
	searchLimit int
}

func NewMemoryProductStore(searchLimit int) *MemoryProductStore {
	return &MemoryProductStore{
		products:    make(map[int64]models.Product),
		searchLimit: searchLimit,
	}
}

func (s *MemoryProductStore) GetByID(_ context.Context, id int64) (*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, ok := s.products[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	return &product, nil
}

func (s *MemoryProductStore) Insert(_ context.Context, product *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[product.PrdID]; exists {
		return fmt.Errorf("%w: %d", ErrDuplicateProduct, product.PrdID)
	}

	now := time.Now()
	product.CreatedAt = now
	product.UpdatedAt = now
	s.products[product.PrdID] = *product
	return nil
}

func (s *MemoryProductStore) Update(_ context.Context, product *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.products[product.PrdID]
	if !ok {
		return fmt.Errorf("%w: %d", ErrProductNotFound, product.PrdID)
	}

	product.CreatedAt = existing.CreatedAt
	product.UpdatedAt = time.Now()
	s.products[product.PrdID] = *product
	return nil
}

func (s *MemoryProductStore) SearchByKeyword(_ context.Context, keyword string) ([]models.Product, error) {
	term := strings.ToLower(strings.TrimSpace(keyword))

	s.mu.RLock()
	matches := make([]models.Product, 0)
	for _, p := range s.products {
		if strings.Contains(strings.ToLower(p.ProductName), term) ||
			strings.Contains(strings.ToLower(p.CompanyName), term) ||
			strings.Contains(p.RegistrationNo, term) {
			matches = append(matches, p)
		}
	}
	s.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].ProductName != matches[j].ProductName {
			return matches[i].ProductName < matches[j].ProductName
		}
		return matches[i].PrdID < matches[j].PrdID
	})

	if s.searchLimit > 0 && len(matches) > s.searchLimit {
		matches = matches[:s.searchLimit]
	}
	return matches, nil
}

// Len reports how many products are stored.
func (s *MemoryProductStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.products)
}
