package integration

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	orderingApp "github.com/davicafu/ordelab/internal/ordering/application"
	orderingDomain "github.com/davicafu/ordelab/internal/ordering/domain"
	sharedDomain "github.com/davicafu/ordelab/internal/shared/domain"
	sharedEvents "github.com/davicafu/ordelab/internal/shared/events"
	infraEvents "github.com/davicafu/ordelab/internal/shared/infra/events"
	sharedBus "github.com/davicafu/ordelab/internal/shared/infra/platform/bus"
	"github.com/davicafu/ordelab/internal/shared/infra/relayer"
	"github.com/davicafu/ordelab/tests/mocks"
)

// captureHandler acumula los sobres recibidos por el bus.
type captureHandler struct {
	mu       sync.Mutex
	received []sharedEvents.IntegrationEvent
}

func (h *captureHandler) Name() string { return "integration.capture" }

func (h *captureHandler) Handle(ctx context.Context, evt sharedEvents.IntegrationEvent, payload interface{}) sharedBus.Result {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.received = append(h.received, evt)
	return sharedBus.Ok
}

func (h *captureHandler) ofType(eventType string) []sharedEvents.IntegrationEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []sharedEvents.IntegrationEvent
	for _, evt := range h.received {
		if evt.Type == eventType {
			out = append(out, evt)
		}
	}
	return out
}

type flowFixture struct {
	service  *orderingApp.OrderService
	eventLog *mocks.InMemoryEventLog
	worker   *relayer.Worker
}

// newFlowFixture monta el circuito completo en memoria: servicio → unidad de
// trabajo → log de eventos → relayer → bus → despachador → handler.
func newFlowFixture(t *testing.T, publisher sharedBus.EventPublisher) *flowFixture {
	t.Helper()

	orders := mocks.NewInMemoryOrderRepo()
	buyers := mocks.NewInMemoryBuyerRepo()
	eventLog := mocks.NewInMemoryEventLog()
	uow := mocks.NewInMemoryUnitOfWork(orders, buyers, eventLog)
	clock := orderingApp.Clock(func() time.Time { return time.Now().UTC() })

	worker := relayer.NewOutboxWorker(eventLog, publisher, orderingDomain.NewEventRegistry(), time.Hour, 100, zap.NewNop())

	integrationEvents := orderingApp.NewIntegrationEventService(eventLog)
	buyerHandler := orderingApp.NewBuyerValidationHandler(buyers, integrationEvents, clock, zap.NewNop())
	domainDispatcher := orderingApp.NewDomainEventDispatcher(map[string][]orderingApp.DomainHandler{
		orderingDomain.OrderStartedEventName: {buyerHandler},
	}, zap.NewNop())

	service := orderingApp.NewOrderService(uow, orders, domainDispatcher, integrationEvents, worker, mocks.NewDummyCache(), clock, zap.NewNop())

	return &flowFixture{service: service, eventLog: eventLog, worker: worker}
}

func createRequest() orderingApp.CreateOrderRequest {
	return orderingApp.CreateOrderRequest{
		UserID:      "identity-abc",
		UserName:    "Ana",
		Description: "2x libro de Go",
		CardType:    "visa",
		CardNumber:  "4111111111114242",
		CardHolder:  "ANA GARCIA",
		CardExpiry:  "12/28",
	}
}

func TestOrderFlow_CommitToConsumerThroughInMemoryBus(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := infraEvents.NewInMemoryEventBus()
	f := newFlowFixture(t, bus)

	capture := &captureHandler{}
	builder := sharedBus.NewRegistryBuilder()
	for eventType, meta := range orderingDomain.NewEventRegistry() {
		builder.Subscribe(eventType, meta, capture)
	}
	dispatcher := sharedBus.NewDispatcher(builder.Build(), nil, zap.NewNop())

	ch := bus.Subscribe(orderingDomain.OrderTopic, 16)
	infraEvents.BackgroundConsumerChan(ctx, ch, dispatcher, zap.NewNop())

	order, err := f.service.CreateOrder(ctx, createRequest())
	assert.NoError(t, err)

	// El flush post-commit empuja el evento hasta el consumidor.
	assert.Eventually(t, func() bool {
		return len(capture.ofType(orderingDomain.OrderStatusChangedToSubmittedType)) == 1
	}, 2*time.Second, 10*time.Millisecond)

	// Y la entrada del log queda Published.
	entries := f.eventLog.All()
	assert.Len(t, entries, 1)
	assert.Equal(t, sharedDomain.EventPublished, entries[0].State)
	assert.Equal(t, order.Status, orderingDomain.OrderSubmitted)
}

func TestOrderFlow_PublishFailureRecoveredByNextSweep(t *testing.T) {
	publisher := mocks.NewRecordingPublisher()
	f := newFlowFixture(t, publisher)

	publisher.FailNext(1)

	_, err := f.service.CreateOrder(context.Background(), createRequest())
	assert.NoError(t, err) // el fallo de publicación nunca aborta el negocio

	// El flush falló: la entrada queda PublishFailed, nada publicado.
	entries := f.eventLog.All()
	assert.Len(t, entries, 1)
	assert.Equal(t, sharedDomain.EventPublishFailed, entries[0].State)
	assert.Empty(t, publisher.Published())

	// El siguiente barrido de recuperación la reintenta y la publica.
	f.worker.Sweep(context.Background())

	entries = f.eventLog.All()
	assert.Equal(t, sharedDomain.EventPublished, entries[0].State)
	assert.Len(t, publisher.Published(), 1)
	assert.Equal(t, orderingDomain.OrderStatusChangedToSubmittedType, publisher.Published()[0].Type)
}

func TestOrderFlow_TransitionEventsArriveInOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := infraEvents.NewInMemoryEventBus()
	f := newFlowFixture(t, bus)

	capture := &captureHandler{}
	builder := sharedBus.NewRegistryBuilder()
	for eventType, meta := range orderingDomain.NewEventRegistry() {
		builder.Subscribe(eventType, meta, capture)
	}
	dispatcher := sharedBus.NewDispatcher(builder.Build(), nil, zap.NewNop())

	ch := bus.Subscribe(orderingDomain.OrderTopic, 16)
	infraEvents.BackgroundConsumerChan(ctx, ch, dispatcher, zap.NewNop())

	order, err := f.service.CreateOrder(ctx, createRequest())
	assert.NoError(t, err)

	_, err = f.service.SetAwaitingValidation(ctx, order.ID)
	assert.NoError(t, err)

	assert.Eventually(t, func() bool {
		capture.mu.Lock()
		defer capture.mu.Unlock()
		return len(capture.received) == 3
	}, 2*time.Second, 10*time.Millisecond)

	// Los eventos de la transacción llegan en su orden de creación.
	capture.mu.Lock()
	types := []string{capture.received[0].Type, capture.received[1].Type, capture.received[2].Type}
	capture.mu.Unlock()
	assert.Equal(t, []string{
		orderingDomain.OrderStatusChangedToSubmittedType,
		orderingDomain.GracePeriodConfirmedType,
		orderingDomain.OrderStatusChangedToAwaitingValidationType,
	}, types)
}
