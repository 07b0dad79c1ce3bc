package mocks

import (
	"context"
	"errors"
	"sync"

	"github.com/stretchr/testify/mock"

	sharedEvents "github.com/davicafu/ordelab/internal/shared/events"
	sharedBus "github.com/davicafu/ordelab/internal/shared/infra/platform/bus"
)

// MockPublisher simula un publisher con expectativas testify.
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, topic string, evt sharedEvents.IntegrationEvent) error {
	args := m.Called(ctx, topic, evt)
	return args.Error(0)
}

// RecordingPublisher captura todo lo publicado, opcionalmente fallando las
// primeras n publicaciones para simular un broker caído.
type RecordingPublisher struct {
	mu        sync.Mutex
	published []sharedEvents.IntegrationEvent
	failNext  int
}

var _ sharedBus.EventPublisher = (*RecordingPublisher)(nil)

func NewRecordingPublisher() *RecordingPublisher {
	return &RecordingPublisher{}
}

// FailNext hace fallar las próximas n publicaciones.
func (p *RecordingPublisher) FailNext(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failNext = n
}

func (p *RecordingPublisher) Publish(ctx context.Context, topic string, evt sharedEvents.IntegrationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failNext > 0 {
		p.failNext--
		return errors.New("simulated transport failure")
	}
	p.published = append(p.published, evt)
	return nil
}

// Published devuelve una copia de los sobres publicados.
func (p *RecordingPublisher) Published() []sharedEvents.IntegrationEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]sharedEvents.IntegrationEvent, len(p.published))
	copy(out, p.published)
	return out
}

// PublishedOfType filtra por tag de evento.
func (p *RecordingPublisher) PublishedOfType(eventType string) []sharedEvents.IntegrationEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []sharedEvents.IntegrationEvent
	for _, evt := range p.published {
		if evt.Type == eventType {
			out = append(out, evt)
		}
	}
	return out
}
