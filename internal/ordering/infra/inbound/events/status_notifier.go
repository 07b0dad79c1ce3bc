package events

import (
	"context"

	"go.uber.org/zap"

	sharedEvents "github.com/davicafu/ordelab/internal/shared/events"
	sharedBus "github.com/davicafu/ordelab/internal/shared/infra/platform/bus"
)

// StatusNotifierHandler avisa de los hitos del pedido. Aquí iría el envío de
// email o push al comprador; de momento deja traza estructurada.
type StatusNotifierHandler struct {
	log *zap.Logger
}

func NewStatusNotifierHandler(log *zap.Logger) *StatusNotifierHandler {
	return &StatusNotifierHandler{log: log}
}

func (h *StatusNotifierHandler) Name() string { return "ordering.status_notifier" }

func (h *StatusNotifierHandler) Handle(ctx context.Context, evt sharedEvents.IntegrationEvent, payload interface{}) sharedBus.Result {
	switch p := payload.(type) {
	case *sharedEvents.OrderStatusChangedToSubmitted:
		h.log.Info("📬 Pedido recibido",
			zap.String("order_id", p.OrderID.String()),
			zap.String("buyer", p.BuyerName),
		)
	case *sharedEvents.GracePeriodConfirmed:
		h.log.Info("📬 Periodo de gracia superado",
			zap.String("order_id", p.OrderID.String()),
		)
	case *sharedEvents.OrderStatusChangedToShipped:
		h.log.Info("📬 Pedido enviado",
			zap.String("order_id", p.OrderID.String()),
		)
	case *sharedEvents.OrderStatusChangedToCancelled:
		h.log.Info("📬 Pedido cancelado",
			zap.String("order_id", p.OrderID.String()),
			zap.String("reason", p.Reason),
		)
	default:
		h.log.Debug("📬 Cambio de estado",
			zap.String("event_type", evt.Type),
			zap.String("event_id", evt.ID.String()),
		)
	}
	return sharedBus.Ok
}

// Verificación en tiempo de compilación.
var _ sharedBus.Handler = (*StatusNotifierHandler)(nil)
