package mocks

import (
	"context"
	"sync"

	"github.com/google/uuid"

	catalogDomain "github.com/davicafu/ordelab/internal/catalog/domain"
)

// InMemoryProductRepo simula ProductRepository.
type InMemoryProductRepo struct {
	mu       sync.Mutex
	Products map[uuid.UUID]*catalogDomain.Product
}

var _ catalogDomain.ProductRepository = (*InMemoryProductRepo)(nil)
var _ TxParticipant = (*InMemoryProductRepo)(nil)

func NewInMemoryProductRepo() *InMemoryProductRepo {
	return &InMemoryProductRepo{Products: make(map[uuid.UUID]*catalogDomain.Product)}
}

func (r *InMemoryProductRepo) Create(ctx context.Context, p *catalogDomain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.Products[p.ID] = &cp
	return nil
}

func (r *InMemoryProductRepo) GetByID(ctx context.Context, id uuid.UUID) (*catalogDomain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.Products[id]
	if !ok {
		return nil, catalogDomain.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *InMemoryProductRepo) Update(ctx context.Context, p *catalogDomain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.Products[p.ID]; !ok {
		return catalogDomain.ErrProductNotFound
	}
	cp := *p
	r.Products[p.ID] = &cp
	return nil
}

func (r *InMemoryProductRepo) Snapshot() interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap := make(map[uuid.UUID]*catalogDomain.Product, len(r.Products))
	for k, v := range r.Products {
		cp := *v
		snap[k] = &cp
	}
	return snap
}

func (r *InMemoryProductRepo) Restore(snapshot interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Products = snapshot.(map[uuid.UUID]*catalogDomain.Product)
}
