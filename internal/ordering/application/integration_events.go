package application

import (
	"context"

	"github.com/google/uuid"

	sharedDomain "github.com/davicafu/ordelab/internal/shared/domain"
	sharedEvents "github.com/davicafu/ordelab/internal/shared/events"
)

// IntegrationEventService encola eventos de integración en el log, dentro de
// la transacción abierta que viaja en el contexto. Si el insert falla, la
// unidad de trabajo entera falla: la atomicidad es el objetivo.
type IntegrationEventService struct {
	eventLog sharedDomain.EventLogRepository
}

func NewIntegrationEventService(eventLog sharedDomain.EventLogRepository) *IntegrationEventService {
	return &IntegrationEventService{eventLog: eventLog}
}

// AddAndSave construye el sobre y lo persiste como NotPublished ligado a la
// transacción indicada.
func (s *IntegrationEventService) AddAndSave(ctx context.Context, transactionID uuid.UUID, eventType string, payload interface{}) error {
	evt, err := sharedEvents.NewIntegrationEvent(eventType, payload)
	if err != nil {
		return err
	}
	return s.eventLog.Save(ctx, sharedDomain.NewEventLogEntry(evt, transactionID))
}
