package api

import (
	"context"
	"perfumery_server/lib"
	"perfumery_server/structs"
	"perfumery_server/structs/tables"
	"sync"

	"github.com/google/uuid"
)

// memCatalog is an in-memory ProductStore for router tests
type memCatalog struct {
	mu       sync.Mutex
	products map[uuid.UUID]tables.Product
}

func newMemCatalog() *memCatalog {
	return &memCatalog{products: map[uuid.UUID]tables.Product{}}
}

func (m *memCatalog) all() []tables.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]tables.Product, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, p)
	}
	return out
}

func (m *memCatalog) List(context.Context, structs.ProductListOptions) ([]tables.Product, int, error) {
	products := m.all()
	return products, len(products), nil
}

func (m *memCatalog) GetByID(_ context.Context, id uuid.UUID) (*tables.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, lib.ErrProductNotFound
	}
	return &p, nil
}

func (m *memCatalog) GetByIDs(_ context.Context, ids []uuid.UUID) ([]tables.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []tables.Product
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memCatalog) Create(_ context.Context, product *tables.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	m.products[product.ID] = *product
	return nil
}

func (m *memCatalog) Update(_ context.Context, product *tables.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[product.ID]; !ok {
		return lib.ErrProductNotFound
	}
	m.products[product.ID] = *product
	return nil
}

func (m *memCatalog) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.products, id)
	return nil
}

func (m *memCatalog) Count(context.Context) (int, error) {
	return len(m.all()), nil
}

func (m *memCatalog) CountLowStock(_ context.Context, threshold int) (int, error) {
	n := 0
	for _, p := range m.all() {
		if p.Quantity > 0 && p.Quantity < threshold {
			n++
		}
	}
	return n, nil
}

func (m *memCatalog) CountByCategory(context.Context) (map[structs.Category]int, error) {
	counts := map[structs.Category]int{}
	for _, p := range m.all() {
		counts[p.Category]++
	}
	return counts, nil
}
