package domain

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	sharedEvents "github.com/davicafu/ordelab/internal/shared/events"
)

// ErrAlreadyClaimed lo devuelve MarkInProgress cuando la entrada ya no está
// en un estado reclamable: otra réplica (o el flush post-commit y el barrido
// de recuperación solapados) la reclamó primero. Quien lo recibe debe saltar
// la entrada, no publicarla.
var ErrAlreadyClaimed = errors.New("event log entry already claimed")

// EventLogState es el ciclo de vida de una entrada del log de eventos.
type EventLogState int

const (
	EventNotPublished EventLogState = iota
	EventInProgress
	EventPublished
	EventPublishFailed
)

func (s EventLogState) String() string {
	switch s {
	case EventNotPublished:
		return "not_published"
	case EventInProgress:
		return "in_progress"
	case EventPublished:
		return "published"
	case EventPublishFailed:
		return "publish_failed"
	default:
		return "unknown"
	}
}

// EventLogEntry es el registro persistente de un evento de integración
// pendiente de publicar. Se inserta en la misma transacción que la mutación
// de negocio que lo origina; solo el servicio emisor lo muta.
type EventLogEntry struct {
	EventID       uuid.UUID       `json:"event_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	PartitionKey  string          `json:"partition_key,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	State         EventLogState   `json:"state"`
	TransactionID uuid.UUID       `json:"transaction_id"`
}

// NewEventLogEntry crea la entrada NotPublished para un sobre ya construido.
func NewEventLogEntry(evt sharedEvents.IntegrationEvent, transactionID uuid.UUID) EventLogEntry {
	return EventLogEntry{
		EventID:       evt.ID,
		EventType:     evt.Type,
		Payload:       evt.Data,
		PartitionKey:  evt.PartitionKey,
		CreatedAt:     evt.CreatedAt,
		State:         EventNotPublished,
		TransactionID: transactionID,
	}
}

// Envelope reconstruye el sobre de integración a partir de la entrada.
func (e EventLogEntry) Envelope() sharedEvents.IntegrationEvent {
	return sharedEvents.IntegrationEvent{
		ID:           e.EventID,
		Type:         e.EventType,
		PartitionKey: e.PartitionKey,
		CreatedAt:    e.CreatedAt,
		Data:         e.Payload,
	}
}

// EventLogRepository define el contrato del log de eventos de integración.
//
// Save DEBE ejecutarse dentro de la transacción abierta que viaja en el
// contexto (ver platform/db): si la escritura de negocio no llega a commit,
// la entrada tampoco. Las transiciones de estado posteriores ocurren fuera
// de cualquier transacción de negocio.
type EventLogRepository interface {
	Save(ctx context.Context, entry EventLogEntry) error

	// PendingByTransaction devuelve las entradas NotPublished de una
	// transacción ya comprometida, ordenadas por fecha de creación.
	PendingByTransaction(ctx context.Context, transactionID uuid.UUID) ([]EventLogEntry, error)

	// PendingAll devuelve NotPublished y PublishFailed de TODAS las
	// transacciones (barrido de recuperación tras un crash), de más
	// antigua a más reciente.
	PendingAll(ctx context.Context, limit int) ([]EventLogEntry, error)

	// MarkInProgress reclama la entrada para este publicador. Solo
	// transiciona desde NotPublished o PublishFailed; si la entrada ya está
	// InProgress o Published devuelve ErrAlreadyClaimed y el llamante la
	// salta.
	MarkInProgress(ctx context.Context, eventID uuid.UUID) error

	// MarkPublished resuelve una entrada InProgress. Cero filas afectadas se
	// trata como éxito: otra réplica ya publicó la entrada.
	MarkPublished(ctx context.Context, eventID uuid.UUID) error

	// MarkFailed devuelve una entrada InProgress a la cola de reintentos.
	// Cero filas afectadas también es éxito, por la misma razón.
	MarkFailed(ctx context.Context, eventID uuid.UUID) error
}
