package events

import (
	"context"
	"errors"

	"go.uber.org/zap"

	basketDomain "github.com/davicafu/ordelab/internal/basket/domain"
	sharedEvents "github.com/davicafu/ordelab/internal/shared/events"
	sharedBus "github.com/davicafu/ordelab/internal/shared/infra/platform/bus"
)

// PriceUpdateHandler propaga un cambio de precio del catálogo a todas las
// cestas activas. Es idempotente: reaplicar el mismo cambio no toca líneas
// que ya tienen el precio nuevo.
type PriceUpdateHandler struct {
	baskets basketDomain.BasketRepository
	log     *zap.Logger
}

func NewPriceUpdateHandler(baskets basketDomain.BasketRepository, log *zap.Logger) *PriceUpdateHandler {
	return &PriceUpdateHandler{baskets: baskets, log: log}
}

func (h *PriceUpdateHandler) Name() string { return "basket.price_update" }

func (h *PriceUpdateHandler) Handle(ctx context.Context, evt sharedEvents.IntegrationEvent, payload interface{}) sharedBus.Result {
	change, ok := payload.(*sharedEvents.ProductPriceChanged)
	if !ok {
		h.log.Error("Payload inesperado en cambio de precio", zap.String("event_type", evt.Type))
		return sharedBus.PermanentFailure
	}

	buyerIDs, err := h.baskets.BuyerIDs(ctx)
	if err != nil {
		h.log.Warn("⚠️ No se pudo listar cestas", zap.Error(err))
		return sharedBus.TransientFailure
	}

	for _, buyerID := range buyerIDs {
		basket, err := h.baskets.Get(ctx, buyerID)
		if err != nil {
			if errors.Is(err, basketDomain.ErrBasketNotFound) {
				continue // expiró entre el índice y la lectura
			}
			h.log.Warn("⚠️ No se pudo leer la cesta", zap.Error(err))
			return sharedBus.TransientFailure
		}

		if basket.ApplyPriceChange(change.ProductID, change.NewPrice, change.OldPrice) == 0 {
			continue
		}
		if err := h.baskets.Save(ctx, basket); err != nil {
			h.log.Warn("⚠️ No se pudo guardar la cesta", zap.Error(err))
			return sharedBus.TransientFailure
		}
		h.log.Info("🧾 Precio actualizado en cesta",
			zap.String("buyer_id", buyerID.String()),
			zap.String("product_id", change.ProductID.String()),
		)
	}
	return sharedBus.Ok
}

// CheckoutCleanupHandler vacía la cesta del comprador cuando su pedido queda
// registrado.
type CheckoutCleanupHandler struct {
	baskets basketDomain.BasketRepository
	log     *zap.Logger
}

func NewCheckoutCleanupHandler(baskets basketDomain.BasketRepository, log *zap.Logger) *CheckoutCleanupHandler {
	return &CheckoutCleanupHandler{baskets: baskets, log: log}
}

func (h *CheckoutCleanupHandler) Name() string { return "basket.checkout_cleanup" }

func (h *CheckoutCleanupHandler) Handle(ctx context.Context, evt sharedEvents.IntegrationEvent, payload interface{}) sharedBus.Result {
	submitted, ok := payload.(*sharedEvents.OrderStatusChangedToSubmitted)
	if !ok {
		h.log.Error("Payload inesperado en limpieza de cesta", zap.String("event_type", evt.Type))
		return sharedBus.PermanentFailure
	}

	if err := h.baskets.Delete(ctx, submitted.BuyerID); err != nil {
		h.log.Warn("⚠️ No se pudo vaciar la cesta", zap.Error(err))
		return sharedBus.TransientFailure
	}

	h.log.Info("🧹 Cesta vaciada tras el pedido", zap.String("buyer_id", submitted.BuyerID.String()))
	return sharedBus.Ok
}

// Verificación en tiempo de compilación.
var _ sharedBus.Handler = (*PriceUpdateHandler)(nil)
var _ sharedBus.Handler = (*CheckoutCleanupHandler)(nil)
