package bus

import (
	"context"
	"encoding/json"
	"reflect"

	"github.com/google/uuid"
	"go.uber.org/zap"

	sharedEvents "github.com/davicafu/ordelab/internal/shared/events"
)

// ProcessedStore recuerda qué pares (evento, handler) ya se procesaron con
// éxito, para que la redistribución del mismo sobre no repita efectos.
type ProcessedStore interface {
	Seen(ctx context.Context, eventID uuid.UUID, handler string) (bool, error)
	Mark(ctx context.Context, eventID uuid.UUID, handler string) error
}

type subscription struct {
	meta     sharedEvents.EventMetadata
	handlers []Handler
}

// Registry es el mapeo tipo-de-evento → handlers. Se construye una vez en el
// arranque con RegistryBuilder y es inmutable después: nada se suscribe ni se
// desuscribe en caliente.
type Registry struct {
	subs map[string]subscription
}

// Topics devuelve los topics con al menos una suscripción, sin duplicados.
func (r Registry) Topics() []string {
	seen := make(map[string]bool)
	var topics []string
	for _, sub := range r.subs {
		if !seen[sub.meta.Topic] {
			seen[sub.meta.Topic] = true
			topics = append(topics, sub.meta.Topic)
		}
	}
	return topics
}

// RegistryBuilder acumula suscripciones antes de congelar el Registry.
type RegistryBuilder struct {
	subs map[string]subscription
}

func NewRegistryBuilder() *RegistryBuilder {
	return &RegistryBuilder{subs: make(map[string]subscription)}
}

// Subscribe añade handlers para un tipo de evento. Se permite más de un
// handler por tipo; cada uno se invoca de forma independiente.
func (b *RegistryBuilder) Subscribe(eventType string, meta sharedEvents.EventMetadata, handlers ...Handler) *RegistryBuilder {
	sub := b.subs[eventType]
	sub.meta = meta
	sub.handlers = append(sub.handlers, handlers...)
	b.subs[eventType] = sub
	return b
}

// Build congela el registro. El builder no debe reutilizarse después.
func (b *RegistryBuilder) Build() Registry {
	frozen := make(map[string]subscription, len(b.subs))
	for k, v := range b.subs {
		handlers := make([]Handler, len(v.handlers))
		copy(handlers, v.handlers)
		frozen[k] = subscription{meta: v.meta, handlers: handlers}
	}
	return Registry{subs: frozen}
}

// Dispatcher decodifica sobres entrantes y reparte el payload tipado a los
// handlers suscritos.
type Dispatcher struct {
	registry  Registry
	processed ProcessedStore
	log       *zap.Logger
}

func NewDispatcher(registry Registry, processed ProcessedStore, log *zap.Logger) *Dispatcher {
	return &Dispatcher{registry: registry, processed: processed, log: log}
}

// Dispatch procesa un mensaje crudo del transporte. Devuelve el peor Result
// de los handlers: el adaptador del transporte decide con él entre commit,
// reintento o dead-letter.
func (d *Dispatcher) Dispatch(ctx context.Context, raw []byte) Result {
	var envelope sharedEvents.IntegrationEvent
	if err := json.Unmarshal(raw, &envelope); err != nil {
		d.log.Warn("⚠️ Mensaje no decodificable como sobre de integración", zap.Error(err))
		return PermanentFailure
	}

	sub, ok := d.registry.subs[envelope.Type]
	if !ok {
		// Tag desconocido: se registra y se descarta, nunca se reintenta.
		d.log.Warn("Tipo de evento sin suscripción, descartado",
			zap.String("event_type", envelope.Type),
			zap.String("event_id", envelope.ID.String()),
		)
		return Ok
	}

	payload := reflect.New(sub.meta.Type).Interface()
	if err := json.Unmarshal(envelope.Data, payload); err != nil {
		d.log.Error("Payload no coincide con el tipo registrado",
			zap.String("event_type", envelope.Type),
			zap.String("event_id", envelope.ID.String()),
			zap.Error(err),
		)
		return PermanentFailure
	}

	// Cada handler se invoca aunque otro falle; el fallo de uno no bloquea
	// al resto. El peor veredicto manda.
	worst := Ok
	for _, h := range sub.handlers {
		res := d.invoke(ctx, h, envelope, payload)
		if res > worst {
			worst = res
		}
	}
	return worst
}

func (d *Dispatcher) invoke(ctx context.Context, h Handler, envelope sharedEvents.IntegrationEvent, payload interface{}) Result {
	if d.processed != nil {
		seen, err := d.processed.Seen(ctx, envelope.ID, h.Name())
		if err != nil {
			d.log.Warn("⚠️ Error consultando el registro de procesados", zap.Error(err))
			// El handler sigue siendo responsable de su propia idempotencia.
		} else if seen {
			d.log.Info("Evento duplicado ignorado",
				zap.String("event_id", envelope.ID.String()),
				zap.String("handler", h.Name()),
			)
			return Ok
		}
	}

	res := h.Handle(ctx, envelope, payload)
	if res != Ok {
		d.log.Warn("⚠️ Handler falló",
			zap.String("event_id", envelope.ID.String()),
			zap.String("handler", h.Name()),
			zap.String("result", res.String()),
		)
		return res
	}

	if d.processed != nil {
		if err := d.processed.Mark(ctx, envelope.ID, h.Name()); err != nil {
			d.log.Warn("⚠️ No se pudo marcar el evento como procesado", zap.Error(err))
		}
	}
	return Ok
}
