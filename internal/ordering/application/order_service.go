package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/davicafu/ordelab/internal/ordering/domain"
	sharedEvents "github.com/davicafu/ordelab/internal/shared/events"
	sharedCache "github.com/davicafu/ordelab/internal/shared/infra/platform/cache"
)

// Clock es la fuente de tiempo inyectable; los tests simulan periodos de
// gracia transcurridos sin dormir.
type Clock func() time.Time

// OutboxFlusher publica las entradas del log de una transacción ya
// comprometida. Lo implementa el relayer.
type OutboxFlusher interface {
	PublishForTransaction(ctx context.Context, transactionID uuid.UUID)
}

// CreateOrderRequest agrupa los datos del comando de creación de pedido.
type CreateOrderRequest struct {
	UserID      string
	UserName    string
	Description string
	Items       []domain.OrderItem
	CardType    string
	CardNumber  string
	CardHolder  string
	CardExpiry  string
}

// OrderService define los casos de uso del contexto de pedidos. Toda
// mutación escribe negocio + log de eventos en una transacción y publica
// estrictamente después del commit: un fallo de publicación nunca aborta el
// estado de negocio.
type OrderService struct {
	uow               domain.UnitOfWork
	orders            domain.OrderRepository
	domainEvents      *DomainEventDispatcher
	integrationEvents *IntegrationEventService
	flusher           OutboxFlusher
	cache             sharedCache.Cache
	clock             Clock
	log               *zap.Logger
}

func NewOrderService(
	uow domain.UnitOfWork,
	orders domain.OrderRepository,
	domainEvents *DomainEventDispatcher,
	integrationEvents *IntegrationEventService,
	flusher OutboxFlusher,
	cache sharedCache.Cache,
	clock Clock,
	log *zap.Logger,
) *OrderService {
	return &OrderService{
		uow:               uow,
		orders:            orders,
		domainEvents:      domainEvents,
		integrationEvents: integrationEvents,
		flusher:           flusher,
		cache:             cache,
		clock:             clock,
		log:               log,
	}
}

// CreateOrder crea el pedido en estado submitted y despacha OrderStarted en
// la misma unidad de trabajo: la validación de comprador y el evento
// ToSubmitted se comprometen junto al pedido, o nada.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*domain.Order, error) {
	order := domain.NewOrder(uuid.Nil, req.Description, s.clock())
	order.Items = req.Items

	txID, err := s.uow.Do(ctx, func(txCtx context.Context, transactionID uuid.UUID) error {
		started := domain.OrderStarted{
			Order:      order,
			UserID:     req.UserID,
			UserName:   req.UserName,
			CardType:   req.CardType,
			CardNumber: req.CardNumber,
			CardHolder: req.CardHolder,
			CardExpiry: req.CardExpiry,
		}
		// El handler de comprador fija order.BuyerID antes del insert.
		if err := s.domainEvents.Dispatch(txCtx, transactionID, started); err != nil {
			return err
		}
		return s.orders.Create(txCtx, order)
	})
	if err != nil {
		return nil, err
	}

	s.flusher.PublishForTransaction(ctx, txID)

	sharedCache.AsyncCacheSet(ctx, s.cache, domain.CacheKeyByID(order.ID), order, 60, s.log)

	s.log.Info("🧾 Pedido creado",
		zap.String("order_id", order.ID.String()),
		zap.String("buyer_id", order.BuyerID.String()),
	)
	return order, nil
}

// GetOrder obtiene un pedido (primero intenta desde cache).
func (s *OrderService) GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	if s.cache != nil {
		var o domain.Order
		if ok, _ := s.cache.Get(ctx, domain.CacheKeyByID(id), &o); ok {
			return &o, nil
		}
	}

	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	sharedCache.AsyncCacheSet(ctx, s.cache, domain.CacheKeyByID(id), order, 60, s.log)
	return order, nil
}

// stagedEvent es un evento de integración pendiente de encolar, en orden.
type stagedEvent struct {
	eventType string
	payload   interface{}
}

// transition carga el pedido, aplica el cambio de estado y encola los
// eventos de integración que el callback devuelva, todo en una transacción.
// Los eventos se insertan en el orden devuelto: ese es el orden en que el
// relayer los publicará.
func (s *OrderService) transition(
	ctx context.Context,
	orderID uuid.UUID,
	apply func(o *domain.Order, now time.Time) error,
	stage func(o *domain.Order) []stagedEvent,
) (*domain.Order, error) {
	var order *domain.Order

	txID, err := s.uow.Do(ctx, func(txCtx context.Context, transactionID uuid.UUID) error {
		var err error
		order, err = s.orders.GetByID(txCtx, orderID)
		if err != nil {
			return err
		}
		if err := apply(order, s.clock()); err != nil {
			return err
		}
		if err := s.orders.Update(txCtx, order); err != nil {
			return err
		}
		for _, staged := range stage(order) {
			if err := s.integrationEvents.AddAndSave(txCtx, transactionID, staged.eventType, staged.payload); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.flusher.PublishForTransaction(ctx, txID)

	sharedCache.AsyncCacheSet(ctx, s.cache, domain.CacheKeyByID(order.ID), order, 60, s.log)
	return order, nil
}

// SetAwaitingValidation confirma el periodo de gracia: submitted →
// awaiting_validation más los eventos GracePeriodConfirmed y
// ToAwaitingValidation.
func (s *OrderService) SetAwaitingValidation(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	return s.transition(ctx, orderID,
		func(o *domain.Order, now time.Time) error { return o.SetAwaitingValidationStatus(now) },
		func(o *domain.Order) []stagedEvent {
			return []stagedEvent{
				{domain.GracePeriodConfirmedType, sharedEvents.GracePeriodConfirmed{
					OrderID:     o.ID,
					SubmittedAt: o.SubmittedAt,
				}},
				{domain.OrderStatusChangedToAwaitingValidationType, sharedEvents.OrderStatusChangedToAwaitingValidation{
					OrderID:     o.ID,
					OrderStatus: string(o.Status),
				}},
			}
		},
	)
}

// ConfirmStock marca el pedido como stock_confirmed.
func (s *OrderService) ConfirmStock(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	return s.transition(ctx, orderID,
		func(o *domain.Order, now time.Time) error { return o.SetStockConfirmedStatus(now) },
		func(o *domain.Order) []stagedEvent {
			return []stagedEvent{
				{domain.OrderStatusChangedToStockConfirmedType, sharedEvents.OrderStatusChangedToStockConfirmed{
					OrderID:     o.ID,
					OrderStatus: string(o.Status),
				}},
			}
		},
	)
}

// SetPaid marca el pedido como pagado.
func (s *OrderService) SetPaid(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	return s.transition(ctx, orderID,
		func(o *domain.Order, now time.Time) error { return o.SetPaidStatus(now) },
		func(o *domain.Order) []stagedEvent {
			return []stagedEvent{
				{domain.OrderStatusChangedToPaidType, sharedEvents.OrderStatusChangedToPaid{
					OrderID:     o.ID,
					OrderStatus: string(o.Status),
				}},
			}
		},
	)
}

// Ship marca el pedido como enviado.
func (s *OrderService) Ship(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	return s.transition(ctx, orderID,
		func(o *domain.Order, now time.Time) error { return o.SetShippedStatus(now) },
		func(o *domain.Order) []stagedEvent {
			return []stagedEvent{
				{domain.OrderStatusChangedToShippedType, sharedEvents.OrderStatusChangedToShipped{
					OrderID:     o.ID,
					OrderStatus: string(o.Status),
				}},
			}
		},
	)
}

// Cancel cancela el pedido desde cualquier estado no terminal.
func (s *OrderService) Cancel(ctx context.Context, orderID uuid.UUID, reason string) (*domain.Order, error) {
	return s.transition(ctx, orderID,
		func(o *domain.Order, now time.Time) error { return o.SetCancelledStatus(now) },
		func(o *domain.Order) []stagedEvent {
			return []stagedEvent{
				{domain.OrderStatusChangedToCancelledType, sharedEvents.OrderStatusChangedToCancelled{
					OrderID:     o.ID,
					OrderStatus: string(o.Status),
					Reason:      reason,
				}},
			}
		},
	)
}
