package bus

import (
	"context"

	sharedEvents "github.com/davicafu/ordelab/internal/shared/events"
)

// EventPublisher publica sobres de integración en un topic. La entrega es
// al-menos-una-vez: el transporte puede redistribuir, los consumidores
// deduplican por el ID del sobre.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, evt sharedEvents.IntegrationEvent) error
}

// Result es el veredicto explícito de un handler. El despachador decide
// reintento o dead-letter a partir de él, sin inspeccionar tipos de error.
type Result int

const (
	Ok Result = iota
	TransientFailure
	PermanentFailure
)

func (r Result) String() string {
	switch r {
	case Ok:
		return "ok"
	case TransientFailure:
		return "transient_failure"
	case PermanentFailure:
		return "permanent_failure"
	default:
		return "unknown"
	}
}

// Handler procesa el payload ya decodificado de un evento de integración.
// Debe ser idempotente respecto al ID del sobre: el mismo evento puede
// llegar más de una vez.
type Handler interface {
	// Name identifica al handler para deduplicación y logs.
	Name() string
	Handle(ctx context.Context, evt sharedEvents.IntegrationEvent, payload interface{}) Result
}
