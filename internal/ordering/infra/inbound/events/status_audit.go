package events

import (
	"context"

	"go.uber.org/zap"

	"github.com/davicafu/ordelab/internal/ordering/infra/outbound/analytics/clickhouse"
	sharedEvents "github.com/davicafu/ordelab/internal/shared/events"
	sharedBus "github.com/davicafu/ordelab/internal/shared/infra/platform/bus"
)

// StatusAuditHandler vuelca cada cambio de estado de pedido a ClickHouse.
// Un fallo aquí es transitorio: el mensaje se reintenta y la deduplicación
// por ID evita filas dobles en reentregas.
type StatusAuditHandler struct {
	repo *clickhouse.StatusLogRepo
	log  *zap.Logger
}

func NewStatusAuditHandler(repo *clickhouse.StatusLogRepo, log *zap.Logger) *StatusAuditHandler {
	return &StatusAuditHandler{repo: repo, log: log}
}

func (h *StatusAuditHandler) Name() string { return "ordering.status_audit" }

func (h *StatusAuditHandler) Handle(ctx context.Context, evt sharedEvents.IntegrationEvent, payload interface{}) sharedBus.Result {
	change, ok := statusChangeFrom(evt, payload)
	if !ok {
		// Evento suscrito pero sin cambio de estado que auditar.
		return sharedBus.Ok
	}

	if err := h.repo.LogBatch(ctx, []clickhouse.StatusChange{change}); err != nil {
		h.log.Warn("⚠️ No se pudo auditar el cambio de estado",
			zap.String("event_id", evt.ID.String()),
			zap.Error(err),
		)
		return sharedBus.TransientFailure
	}
	return sharedBus.Ok
}

func statusChangeFrom(evt sharedEvents.IntegrationEvent, payload interface{}) (clickhouse.StatusChange, bool) {
	change := clickhouse.StatusChange{
		EventID:   evt.ID,
		EventType: evt.Type,
		EventTime: evt.CreatedAt,
	}

	switch p := payload.(type) {
	case *sharedEvents.OrderStatusChangedToSubmitted:
		change.OrderID, change.Status = p.OrderID, p.OrderStatus
	case *sharedEvents.OrderStatusChangedToAwaitingValidation:
		change.OrderID, change.Status = p.OrderID, p.OrderStatus
	case *sharedEvents.OrderStatusChangedToStockConfirmed:
		change.OrderID, change.Status = p.OrderID, p.OrderStatus
	case *sharedEvents.OrderStatusChangedToPaid:
		change.OrderID, change.Status = p.OrderID, p.OrderStatus
	case *sharedEvents.OrderStatusChangedToShipped:
		change.OrderID, change.Status = p.OrderID, p.OrderStatus
	case *sharedEvents.OrderStatusChangedToCancelled:
		change.OrderID, change.Status = p.OrderID, p.OrderStatus
	default:
		return clickhouse.StatusChange{}, false
	}
	return change, true
}

// Verificación en tiempo de compilación.
var _ sharedBus.Handler = (*StatusAuditHandler)(nil)
