package events

import (
	"context"
	"encoding/json"
	"sync"

	sharedEvents "github.com/davicafu/ordelab/internal/shared/events"
	sharedBus "github.com/davicafu/ordelab/internal/shared/infra/platform/bus"
)

// InMemoryEventBus implementa publicación y suscripción por topic usando
// canales de Go. Pensado para despliegues locales y tests de integración:
// misma semántica al-menos-una-vez que Kafka desde el punto de vista del
// consumidor (los duplicados son posibles, la deduplicación es suya).
type InMemoryEventBus struct {
	mu          sync.RWMutex
	subscribers map[string][]chan []byte
}

var _ sharedBus.EventPublisher = (*InMemoryEventBus)(nil)

func NewInMemoryEventBus() *InMemoryEventBus {
	return &InMemoryEventBus{
		subscribers: make(map[string][]chan []byte),
	}
}

// Publish serializa el sobre y lo entrega a todos los suscriptores del topic.
func (b *InMemoryEventBus) Publish(ctx context.Context, topic string, evt sharedEvents.IntegrationEvent) error {
	raw, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	b.mu.RLock()
	subs := b.subscribers[topic]
	b.mu.RUnlock()

	for _, ch := range subs {
		select {
		case ch <- raw:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Subscribe registra un nuevo oyente para un topic.
func (b *InMemoryEventBus) Subscribe(topic string, bufferSize int) <-chan []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan []byte, bufferSize)
	b.subscribers[topic] = append(b.subscribers[topic], ch)
	return ch
}
