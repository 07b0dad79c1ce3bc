package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/davicafu/ordelab/internal/ordering/domain"
	"github.com/davicafu/ordelab/tests/mocks"
)

// fakeClock es un reloj movible a mano.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type workerFixture struct {
	worker   *GracePeriodWorker
	service  *OrderService
	orders   *mocks.InMemoryOrderRepo
	eventLog *mocks.InMemoryEventLog
	stock    *mocks.StubStockConfirmer
	clock    *fakeClock
}

func newWorkerFixture(t *testing.T, gracePeriod time.Duration) *workerFixture {
	t.Helper()

	orders := mocks.NewInMemoryOrderRepo()
	buyers := mocks.NewInMemoryBuyerRepo()
	eventLog := mocks.NewInMemoryEventLog()
	uow := mocks.NewInMemoryUnitOfWork(orders, buyers, eventLog)
	clock := newFakeClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))

	integrationEvents := NewIntegrationEventService(eventLog)
	buyerHandler := NewBuyerValidationHandler(buyers, integrationEvents, clock.Now, zap.NewNop())
	dispatcher := NewDomainEventDispatcher(map[string][]DomainHandler{
		domain.OrderStartedEventName: {buyerHandler},
	}, zap.NewNop())
	service := NewOrderService(uow, orders, dispatcher, integrationEvents, &mocks.NoopFlusher{}, mocks.NewDummyCache(), clock.Now, zap.NewNop())

	stock := &mocks.StubStockConfirmer{OK: true}
	worker := NewGracePeriodWorker(service, orders, stock, gracePeriod, time.Minute, 100, clock.Now, zap.NewNop())

	return &workerFixture{
		worker:   worker,
		service:  service,
		orders:   orders,
		eventLog: eventLog,
		stock:    stock,
		clock:    clock,
	}
}

func TestTick_BeforeGraceExpiryDoesNothing(t *testing.T) {
	f := newWorkerFixture(t, 30*time.Minute)

	order, err := f.service.CreateOrder(context.Background(), createRequest())
	assert.NoError(t, err)

	// Solo han pasado 10 minutos: el pedido sigue en gracia.
	f.clock.Advance(10 * time.Minute)
	f.worker.Tick(context.Background())

	unchanged, _ := f.orders.GetByID(context.Background(), order.ID)
	assert.Equal(t, domain.OrderSubmitted, unchanged.Status)
	assert.Len(t, f.eventLog.All(), 1) // solo ToSubmitted
	assert.Zero(t, f.stock.Calls)
}

func TestTick_GraceExpiredAndStockOK_ConfirmsOrder(t *testing.T) {
	f := newWorkerFixture(t, 30*time.Minute)

	order, _ := f.service.CreateOrder(context.Background(), createRequest())

	f.clock.Advance(35 * time.Minute)
	f.worker.Tick(context.Background())

	// submitted → awaiting_validation → stock_confirmed en el mismo ciclo.
	updated, _ := f.orders.GetByID(context.Background(), order.ID)
	assert.Equal(t, domain.OrderStockConfirmed, updated.Status)
	assert.Equal(t, 1, f.stock.Calls)

	types := make([]string, 0)
	for _, e := range f.eventLog.All() {
		types = append(types, e.EventType)
	}
	assert.Equal(t, []string{
		domain.OrderStatusChangedToSubmittedType,
		domain.GracePeriodConfirmedType,
		domain.OrderStatusChangedToAwaitingValidationType,
		domain.OrderStatusChangedToStockConfirmedType,
	}, types)
}

func TestTick_GraceExpiredAndStockRejected_CancelsOrder(t *testing.T) {
	f := newWorkerFixture(t, 30*time.Minute)
	f.stock.OK = false

	order, _ := f.service.CreateOrder(context.Background(), createRequest())

	f.clock.Advance(35 * time.Minute)
	f.worker.Tick(context.Background())

	updated, _ := f.orders.GetByID(context.Background(), order.ID)
	assert.Equal(t, domain.OrderCancelled, updated.Status)

	cancelled := 0
	for _, e := range f.eventLog.All() {
		if e.EventType == domain.OrderStatusChangedToCancelledType {
			cancelled++
		}
	}
	assert.Equal(t, 1, cancelled)
}

func TestTick_StockErrorLeavesOrderForNextTick(t *testing.T) {
	f := newWorkerFixture(t, 30*time.Minute)
	f.stock.Err = errors.New("stock service unavailable")

	order, _ := f.service.CreateOrder(context.Background(), createRequest())

	f.clock.Advance(35 * time.Minute)
	f.worker.Tick(context.Background())

	// Fallo técnico: queda en awaiting_validation, sin cancelar.
	updated, _ := f.orders.GetByID(context.Background(), order.ID)
	assert.Equal(t, domain.OrderAwaitingValidation, updated.Status)

	// El siguiente tick, ya con el servicio recuperado, lo confirma.
	f.stock.Err = nil
	f.worker.Tick(context.Background())

	updated, _ = f.orders.GetByID(context.Background(), order.ID)
	assert.Equal(t, domain.OrderStockConfirmed, updated.Status)
}

func TestTick_AlreadyProcessedOrderIsNotReprocessed(t *testing.T) {
	f := newWorkerFixture(t, 30*time.Minute)

	_, _ = f.service.CreateOrder(context.Background(), createRequest())

	f.clock.Advance(35 * time.Minute)
	f.worker.Tick(context.Background())
	before := len(f.eventLog.All())

	// Un tick más no genera eventos nuevos: el pedido ya salió de los
	// estados que barre el worker.
	f.worker.Tick(context.Background())
	assert.Len(t, f.eventLog.All(), before)
	assert.Equal(t, 1, f.stock.Calls)
}

// blockingStockConfirmer se queda parado hasta que el test lo libere.
type blockingStockConfirmer struct {
	entered chan struct{}
	release chan struct{}
	calls   int
}

func (s *blockingStockConfirmer) Confirm(ctx context.Context, o *domain.Order) (bool, error) {
	s.calls++
	close(s.entered)
	<-s.release
	return true, nil
}

func TestTick_OverlappingTickIsSkipped(t *testing.T) {
	f := newWorkerFixture(t, 30*time.Minute)

	blocking := &blockingStockConfirmer{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	f.worker.stock = blocking

	_, _ = f.service.CreateOrder(context.Background(), createRequest())
	f.clock.Advance(35 * time.Minute)

	done := make(chan struct{})
	go func() {
		f.worker.Tick(context.Background())
		close(done)
	}()

	<-blocking.entered

	// El primer tick sigue dentro del confirmador: este segundo se salta.
	f.worker.Tick(context.Background())

	close(blocking.release)
	<-done

	assert.Equal(t, 1, blocking.calls)
}
