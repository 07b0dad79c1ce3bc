package application

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/davicafu/ordelab/internal/ordering/domain"
)

// DomainHandler reacciona a un evento de dominio dentro de la unidad de
// trabajo abierta. Un error aborta la unidad de trabajo completa: no hay
// commits parciales.
type DomainHandler interface {
	HandleDomainEvent(ctx context.Context, transactionID uuid.UUID, evt domain.DomainEvent) error
}

// DomainEventDispatcher despacha eventos de dominio en proceso y de forma
// síncrona. El mapeo se construye una vez en el arranque y es inmutable
// después; nada de estado global ambiente.
type DomainEventDispatcher struct {
	handlers map[string][]DomainHandler
	log      *zap.Logger
}

func NewDomainEventDispatcher(bindings map[string][]DomainHandler, log *zap.Logger) *DomainEventDispatcher {
	frozen := make(map[string][]DomainHandler, len(bindings))
	for name, hs := range bindings {
		cp := make([]DomainHandler, len(hs))
		copy(cp, hs)
		frozen[name] = cp
	}
	return &DomainEventDispatcher{handlers: frozen, log: log}
}

// Dispatch invoca en orden los handlers del evento. El primer error corta:
// la transacción en curso debe hacer rollback.
func (d *DomainEventDispatcher) Dispatch(ctx context.Context, transactionID uuid.UUID, evt domain.DomainEvent) error {
	for _, h := range d.handlers[evt.Name()] {
		if err := h.HandleDomainEvent(ctx, transactionID, evt); err != nil {
			d.log.Warn("⚠️ Handler de evento de dominio falló",
				zap.String("event", evt.Name()),
				zap.Error(err),
			)
			return err
		}
	}
	return nil
}
