package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	orderingDomain "github.com/davicafu/ordelab/internal/ordering/domain"
)

// ---------- Unidad de trabajo en memoria ----------

// TxParticipant permite a la unidad de trabajo en memoria deshacer lo
// escrito si la función falla, imitando el rollback de una transacción SQL.
type TxParticipant interface {
	Snapshot() interface{}
	Restore(snapshot interface{})
}

// InMemoryUnitOfWork coordina repos en memoria con semántica todo-o-nada.
type InMemoryUnitOfWork struct {
	mu           sync.Mutex
	participants []TxParticipant
	Transactions []uuid.UUID // ids de transacciones comprometidas, en orden
}

var _ orderingDomain.UnitOfWork = (*InMemoryUnitOfWork)(nil)

func NewInMemoryUnitOfWork(participants ...TxParticipant) *InMemoryUnitOfWork {
	return &InMemoryUnitOfWork{participants: participants}
}

func (u *InMemoryUnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, transactionID uuid.UUID) error) (uuid.UUID, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	snapshots := make([]interface{}, len(u.participants))
	for i, p := range u.participants {
		snapshots[i] = p.Snapshot()
	}

	txID := uuid.New()
	if err := fn(ctx, txID); err != nil {
		for i, p := range u.participants {
			p.Restore(snapshots[i])
		}
		return uuid.Nil, err
	}

	u.Transactions = append(u.Transactions, txID)
	return txID, nil
}

// ---------- Repos en memoria ----------

// InMemoryOrderRepo simula OrderRepository.
type InMemoryOrderRepo struct {
	mu     sync.Mutex
	Orders map[uuid.UUID]*orderingDomain.Order
}

var _ orderingDomain.OrderRepository = (*InMemoryOrderRepo)(nil)
var _ TxParticipant = (*InMemoryOrderRepo)(nil)

func NewInMemoryOrderRepo() *InMemoryOrderRepo {
	return &InMemoryOrderRepo{Orders: make(map[uuid.UUID]*orderingDomain.Order)}
}

func (r *InMemoryOrderRepo) Create(ctx context.Context, o *orderingDomain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.Orders[o.ID]; ok {
		return orderingDomain.ErrOrderAlreadyExists
	}
	cp := *o
	r.Orders[o.ID] = &cp
	return nil
}

func (r *InMemoryOrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*orderingDomain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.Orders[id]
	if !ok {
		return nil, orderingDomain.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *InMemoryOrderRepo) Update(ctx context.Context, o *orderingDomain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.Orders[o.ID]; !ok {
		return orderingDomain.ErrOrderNotFound
	}
	cp := *o
	r.Orders[o.ID] = &cp
	return nil
}

func (r *InMemoryOrderRepo) ListByStatusOlderThan(ctx context.Context, status orderingDomain.OrderStatus, cutoff time.Time, limit int) ([]*orderingDomain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*orderingDomain.Order
	for _, o := range r.Orders {
		if o.Status == status && o.SubmittedAt.Before(cutoff) {
			cp := *o
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubmittedAt.Before(out[j].SubmittedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *InMemoryOrderRepo) Snapshot() interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap := make(map[uuid.UUID]*orderingDomain.Order, len(r.Orders))
	for k, v := range r.Orders {
		cp := *v
		snap[k] = &cp
	}
	return snap
}

func (r *InMemoryOrderRepo) Restore(snapshot interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Orders = snapshot.(map[uuid.UUID]*orderingDomain.Order)
}

// InMemoryBuyerRepo simula BuyerRepository.
type InMemoryBuyerRepo struct {
	mu     sync.Mutex
	Buyers map[string]*orderingDomain.Buyer // por identidad externa
}

var _ orderingDomain.BuyerRepository = (*InMemoryBuyerRepo)(nil)
var _ TxParticipant = (*InMemoryBuyerRepo)(nil)

func NewInMemoryBuyerRepo() *InMemoryBuyerRepo {
	return &InMemoryBuyerRepo{Buyers: make(map[string]*orderingDomain.Buyer)}
}

func (r *InMemoryBuyerRepo) FindByIdentity(ctx context.Context, identityGUID string) (*orderingDomain.Buyer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.Buyers[identityGUID]
	if !ok {
		return nil, orderingDomain.ErrBuyerNotFound
	}
	cp := *b
	cp.PaymentMethods = append([]orderingDomain.PaymentMethod(nil), b.PaymentMethods...)
	return &cp, nil
}

func (r *InMemoryBuyerRepo) Save(ctx context.Context, b *orderingDomain.Buyer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *b
	cp.PaymentMethods = append([]orderingDomain.PaymentMethod(nil), b.PaymentMethods...)
	r.Buyers[b.IdentityGUID] = &cp
	return nil
}

func (r *InMemoryBuyerRepo) Snapshot() interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap := make(map[string]*orderingDomain.Buyer, len(r.Buyers))
	for k, v := range r.Buyers {
		cp := *v
		cp.PaymentMethods = append([]orderingDomain.PaymentMethod(nil), v.PaymentMethods...)
		snap[k] = &cp
	}
	return snap
}

func (r *InMemoryBuyerRepo) Restore(snapshot interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Buyers = snapshot.(map[string]*orderingDomain.Buyer)
}

// ---------- Stubs varios ----------

// StubStockConfirmer responde con un resultado fijo, o con errores
// programados.
type StubStockConfirmer struct {
	mu    sync.Mutex
	OK    bool
	Err   error
	Calls int
}

var _ orderingDomain.StockConfirmer = (*StubStockConfirmer)(nil)

func (s *StubStockConfirmer) Confirm(ctx context.Context, o *orderingDomain.Order) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls++
	return s.OK, s.Err
}

// NoopFlusher ignora el flush post-commit; el barrido de recuperación es el
// único camino de publicación.
type NoopFlusher struct {
	mu      sync.Mutex
	Flushed []uuid.UUID
}

func (f *NoopFlusher) PublishForTransaction(ctx context.Context, transactionID uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Flushed = append(f.Flushed, transactionID)
}
