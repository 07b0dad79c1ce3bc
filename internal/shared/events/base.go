package events

import (
	"encoding/json"
	"reflect"
	"time"

	"github.com/google/uuid"
)

// IntegrationEvent es el sobre común de todos los eventos de integración.
// Los consumidores enrutan por Type y deduplican por ID: el ID es estable
// entre reintentos, así que una redistribución del mismo evento no debe
// producir efectos dobles.
type IntegrationEvent struct {
	ID           uuid.UUID       `json:"id"`
	Type         string          `json:"type"`
	PartitionKey string          `json:"partition_key,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	Data         json.RawMessage `json:"data"` // contenido específico del evento
}

// Keyer lo implementan los payloads que fijan la clave de partición de su
// sobre: todos los eventos del mismo agregado caen en la misma partición y
// conservan su orden relativo en el transporte.
type Keyer interface {
	PartitionKey() string
}

// NewIntegrationEvent serializa el payload tipado y construye el sobre. Si el
// payload implementa Keyer, el sobre lleva su clave de partición.
func NewIntegrationEvent(eventType string, payload interface{}) (IntegrationEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return IntegrationEvent{}, err
	}
	evt := IntegrationEvent{
		ID:        uuid.New(),
		Type:      eventType,
		CreatedAt: time.Now().UTC(),
		Data:      data,
	}
	if k, ok := payload.(Keyer); ok {
		evt.PartitionKey = k.PartitionKey()
	}
	return evt, nil
}

// EventMetadata describe cómo decodificar y enrutar un tipo de evento.
type EventMetadata struct {
	Type  reflect.Type
	Topic string
}
