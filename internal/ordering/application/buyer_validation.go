package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/davicafu/ordelab/internal/ordering/domain"
	sharedEvents "github.com/davicafu/ordelab/internal/shared/events"
)

// BuyerValidationHandler reacciona al evento de dominio OrderStarted: busca
// al comprador por su identidad externa, lo crea si no existe, verifica o
// añade el método de pago (idempotente por huella) y encola el evento de
// integración ToSubmitted — todo dentro de la misma transacción que el
// pedido.
//
// El id del comprador es un uuid generado en proceso, disponible antes del
// commit; no hace falta la recarga post-commit que necesitaría una clave
// generada por la base de datos.
type BuyerValidationHandler struct {
	buyers            domain.BuyerRepository
	integrationEvents *IntegrationEventService
	clock             Clock
	log               *zap.Logger
}

var _ DomainHandler = (*BuyerValidationHandler)(nil)

func NewBuyerValidationHandler(
	buyers domain.BuyerRepository,
	integrationEvents *IntegrationEventService,
	clock Clock,
	log *zap.Logger,
) *BuyerValidationHandler {
	return &BuyerValidationHandler{
		buyers:            buyers,
		integrationEvents: integrationEvents,
		clock:             clock,
		log:               log,
	}
}

func (h *BuyerValidationHandler) HandleDomainEvent(ctx context.Context, transactionID uuid.UUID, evt domain.DomainEvent) error {
	started, ok := evt.(domain.OrderStarted)
	if !ok {
		return fmt.Errorf("unexpected domain event %q", evt.Name())
	}

	buyer, err := h.buyers.FindByIdentity(ctx, started.UserID)
	if err != nil {
		if !errors.Is(err, domain.ErrBuyerNotFound) {
			return err
		}
		buyer = domain.NewBuyer(started.UserID, started.UserName)
	}

	now := h.clock()
	buyer.VerifyOrAddPaymentMethod(
		started.CardType,
		maskCardNumber(started.CardNumber),
		started.CardExpiry,
		"Payment method verified on "+now.UTC().Format(time.RFC3339),
		now,
	)

	if err := h.buyers.Save(ctx, buyer); err != nil {
		return err
	}

	// El pedido referencia al comprador persistido.
	started.Order.BuyerID = buyer.ID

	payload := sharedEvents.OrderStatusChangedToSubmitted{
		OrderID:     started.Order.ID,
		OrderStatus: string(started.Order.Status),
		BuyerID:     buyer.ID,
		BuyerName:   buyer.Name,
	}
	if err := h.integrationEvents.AddAndSave(ctx, transactionID, domain.OrderStatusChangedToSubmittedType, payload); err != nil {
		return err
	}

	h.log.Info("✅ Comprador validado y método de pago verificado",
		zap.String("buyer_id", buyer.ID.String()),
		zap.String("order_id", started.Order.ID.String()),
	)
	return nil
}

// maskCardNumber conserva solo los 4 últimos dígitos.
func maskCardNumber(number string) string {
	if len(number) <= 4 {
		return number
	}
	return "****" + number[len(number)-4:]
}
