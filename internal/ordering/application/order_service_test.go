package application

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/davicafu/ordelab/internal/ordering/domain"
	sharedDomain "github.com/davicafu/ordelab/internal/shared/domain"
	sharedEvents "github.com/davicafu/ordelab/internal/shared/events"
	"github.com/davicafu/ordelab/tests/mocks"
)

type fixture struct {
	service  *OrderService
	orders   *mocks.InMemoryOrderRepo
	buyers   *mocks.InMemoryBuyerRepo
	eventLog *mocks.InMemoryEventLog
	uow      *mocks.InMemoryUnitOfWork
	flusher  *mocks.NoopFlusher
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	orders := mocks.NewInMemoryOrderRepo()
	buyers := mocks.NewInMemoryBuyerRepo()
	eventLog := mocks.NewInMemoryEventLog()
	uow := mocks.NewInMemoryUnitOfWork(orders, buyers, eventLog)
	flusher := &mocks.NoopFlusher{}

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := Clock(func() time.Time { return now })

	integrationEvents := NewIntegrationEventService(eventLog)
	buyerHandler := NewBuyerValidationHandler(buyers, integrationEvents, clock, zap.NewNop())
	dispatcher := NewDomainEventDispatcher(map[string][]DomainHandler{
		domain.OrderStartedEventName: {buyerHandler},
	}, zap.NewNop())

	service := NewOrderService(uow, orders, dispatcher, integrationEvents, flusher, mocks.NewDummyCache(), clock, zap.NewNop())

	return &fixture{
		service:  service,
		orders:   orders,
		buyers:   buyers,
		eventLog: eventLog,
		uow:      uow,
		flusher:  flusher,
		now:      now,
	}
}

func createRequest() CreateOrderRequest {
	return CreateOrderRequest{
		UserID:      "identity-abc",
		UserName:    "Ana",
		Description: "2x libro de Go",
		CardType:    "visa",
		CardNumber:  "4111111111114242",
		CardHolder:  "ANA GARCIA",
		CardExpiry:  "12/28",
	}
}

func TestCreateOrder_Success(t *testing.T) {
	f := newFixture(t)

	order, err := f.service.CreateOrder(context.Background(), createRequest())
	assert.NoError(t, err)
	assert.Equal(t, domain.OrderSubmitted, order.Status)

	// El comprador se creó con el método de pago verificado.
	buyer, err := f.buyers.FindByIdentity(context.Background(), "identity-abc")
	assert.NoError(t, err)
	assert.Equal(t, buyer.ID, order.BuyerID)
	assert.Len(t, buyer.PaymentMethods, 1)
	assert.Equal(t, "****4242", buyer.PaymentMethods[0].MaskedNumber)

	// ✅ El evento ToSubmitted quedó en el log, NotPublished, ligado a la
	// transacción comprometida.
	entries := f.eventLog.All()
	assert.Len(t, entries, 1)
	assert.Equal(t, domain.OrderStatusChangedToSubmittedType, entries[0].EventType)
	assert.Equal(t, sharedDomain.EventNotPublished, entries[0].State)
	assert.Equal(t, f.uow.Transactions[0], entries[0].TransactionID)

	var payload sharedEvents.OrderStatusChangedToSubmitted
	assert.NoError(t, json.Unmarshal(entries[0].Payload, &payload))
	assert.Equal(t, order.ID, payload.OrderID)
	assert.Equal(t, buyer.ID, payload.BuyerID)

	// Y el flush post-commit se pidió para esa transacción.
	assert.Equal(t, []uuid.UUID{f.uow.Transactions[0]}, f.flusher.Flushed)
}

func TestCreateOrder_ReVerifyPaymentMethodIsIdempotent(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.CreateOrder(context.Background(), createRequest())
	assert.NoError(t, err)
	_, err = f.service.CreateOrder(context.Background(), createRequest())
	assert.NoError(t, err)

	// Misma tarjeta dos veces: un único método de pago.
	buyer, _ := f.buyers.FindByIdentity(context.Background(), "identity-abc")
	assert.Len(t, buyer.PaymentMethods, 1)
}

type failingBuyerRepo struct {
	*mocks.InMemoryBuyerRepo
}

func (r *failingBuyerRepo) Save(ctx context.Context, b *domain.Buyer) error {
	return errors.New("disk full")
}

func TestCreateOrder_FailureLeavesNoOutboxEntry(t *testing.T) {
	orders := mocks.NewInMemoryOrderRepo()
	buyers := &failingBuyerRepo{mocks.NewInMemoryBuyerRepo()}
	eventLog := mocks.NewInMemoryEventLog()
	uow := mocks.NewInMemoryUnitOfWork(orders, buyers.InMemoryBuyerRepo, eventLog)
	flusher := &mocks.NoopFlusher{}
	clock := Clock(func() time.Time { return time.Now().UTC() })

	integrationEvents := NewIntegrationEventService(eventLog)
	buyerHandler := NewBuyerValidationHandler(buyers, integrationEvents, clock, zap.NewNop())
	dispatcher := NewDomainEventDispatcher(map[string][]DomainHandler{
		domain.OrderStartedEventName: {buyerHandler},
	}, zap.NewNop())
	service := NewOrderService(uow, orders, dispatcher, integrationEvents, flusher, mocks.NewDummyCache(), clock, zap.NewNop())

	_, err := service.CreateOrder(context.Background(), createRequest())
	assert.Error(t, err)

	// Atomicidad: ni pedido, ni entrada de outbox, ni flush.
	assert.Empty(t, orders.Orders)
	assert.Empty(t, eventLog.All())
	assert.Empty(t, flusher.Flushed)
}

func TestSetAwaitingValidation_StagesEventsInOrder(t *testing.T) {
	f := newFixture(t)

	order, _ := f.service.CreateOrder(context.Background(), createRequest())

	_, err := f.service.SetAwaitingValidation(context.Background(), order.ID)
	assert.NoError(t, err)

	entries := f.eventLog.All()
	assert.Len(t, entries, 3) // ToSubmitted + GracePeriodConfirmed + ToAwaitingValidation
	assert.Equal(t, domain.GracePeriodConfirmedType, entries[1].EventType)
	assert.Equal(t, domain.OrderStatusChangedToAwaitingValidationType, entries[2].EventType)

	updated, _ := f.orders.GetByID(context.Background(), order.ID)
	assert.Equal(t, domain.OrderAwaitingValidation, updated.Status)
}

func TestTransition_InvalidIsRejectedWithoutEvents(t *testing.T) {
	f := newFixture(t)

	order, _ := f.service.CreateOrder(context.Background(), createRequest())

	// submitted no puede saltar a paid.
	_, err := f.service.SetPaid(context.Background(), order.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	// Ningún evento nuevo y el estado no cambió.
	assert.Len(t, f.eventLog.All(), 1)
	unchanged, _ := f.orders.GetByID(context.Background(), order.ID)
	assert.Equal(t, domain.OrderSubmitted, unchanged.Status)
}

func TestCancel_FromPaidIsRejected(t *testing.T) {
	f := newFixture(t)

	order, _ := f.service.CreateOrder(context.Background(), createRequest())
	_, _ = f.service.SetAwaitingValidation(context.Background(), order.ID)
	_, _ = f.service.ConfirmStock(context.Background(), order.ID)
	_, _ = f.service.SetPaid(context.Background(), order.ID)

	_, err := f.service.Cancel(context.Background(), order.ID, "me arrepentí")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestGetOrder_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.GetOrder(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}
