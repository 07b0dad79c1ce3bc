package bus

import (
	"context"
	"encoding/json"
	"reflect"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	sharedEvents "github.com/davicafu/ordelab/internal/shared/events"
)

type fakePayload struct {
	Value string `json:"value"`
}

type stubHandler struct {
	name   string
	result Result
	calls  int
	seen   []uuid.UUID
}

func (h *stubHandler) Name() string { return h.name }

func (h *stubHandler) Handle(ctx context.Context, evt sharedEvents.IntegrationEvent, payload interface{}) Result {
	h.calls++
	h.seen = append(h.seen, evt.ID)
	return h.result
}

type memProcessedStore struct {
	mu   sync.Mutex
	done map[string]bool
}

func newMemProcessedStore() *memProcessedStore {
	return &memProcessedStore{done: make(map[string]bool)}
}

func (s *memProcessedStore) Seen(ctx context.Context, eventID uuid.UUID, handler string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done[eventID.String()+":"+handler], nil
}

func (s *memProcessedStore) Mark(ctx context.Context, eventID uuid.UUID, handler string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.done[eventID.String()+":"+handler] = true
	return nil
}

func rawEnvelope(t *testing.T, eventType string, payload interface{}) []byte {
	t.Helper()
	evt, err := sharedEvents.NewIntegrationEvent(eventType, payload)
	assert.NoError(t, err)
	raw, err := json.Marshal(evt)
	assert.NoError(t, err)
	return raw
}

func TestDispatcher_MultipleHandlersIndependent(t *testing.T) {
	okHandler := &stubHandler{name: "audit", result: Ok}
	failing := &stubHandler{name: "notifier", result: TransientFailure}

	registry := NewRegistryBuilder().
		Subscribe("test.event", sharedEvents.EventMetadata{Type: reflect.TypeOf(fakePayload{}), Topic: "test"}, failing, okHandler).
		Build()

	d := NewDispatcher(registry, newMemProcessedStore(), zap.NewNop())

	res := d.Dispatch(context.Background(), rawEnvelope(t, "test.event", fakePayload{Value: "hola"}))

	// El fallo de un handler no bloquea al otro, pero el veredicto es el peor.
	assert.Equal(t, TransientFailure, res)
	assert.Equal(t, 1, okHandler.calls)
	assert.Equal(t, 1, failing.calls)
}

func TestDispatcher_DuplicateDeliveryIsIdempotent(t *testing.T) {
	handler := &stubHandler{name: "audit", result: Ok}
	registry := NewRegistryBuilder().
		Subscribe("test.event", sharedEvents.EventMetadata{Type: reflect.TypeOf(fakePayload{}), Topic: "test"}, handler).
		Build()

	d := NewDispatcher(registry, newMemProcessedStore(), zap.NewNop())

	raw := rawEnvelope(t, "test.event", fakePayload{Value: "dup"})

	assert.Equal(t, Ok, d.Dispatch(context.Background(), raw))
	assert.Equal(t, Ok, d.Dispatch(context.Background(), raw))

	// La segunda entrega del mismo sobre no vuelve a invocar al handler.
	assert.Equal(t, 1, handler.calls)
}

func TestDispatcher_UnknownTypeIsDropped(t *testing.T) {
	registry := NewRegistryBuilder().Build()
	d := NewDispatcher(registry, newMemProcessedStore(), zap.NewNop())

	res := d.Dispatch(context.Background(), rawEnvelope(t, "nobody.cares", fakePayload{}))

	// Desconocido → descartado sin reintento.
	assert.Equal(t, Ok, res)
}

func TestDispatcher_MalformedEnvelopeIsPermanent(t *testing.T) {
	registry := NewRegistryBuilder().Build()
	d := NewDispatcher(registry, newMemProcessedStore(), zap.NewNop())

	res := d.Dispatch(context.Background(), []byte("esto no es json"))

	assert.Equal(t, PermanentFailure, res)
}

func TestDispatcher_FailedHandlerRetriesOnRedelivery(t *testing.T) {
	handler := &stubHandler{name: "flaky", result: TransientFailure}
	registry := NewRegistryBuilder().
		Subscribe("test.event", sharedEvents.EventMetadata{Type: reflect.TypeOf(fakePayload{}), Topic: "test"}, handler).
		Build()

	d := NewDispatcher(registry, newMemProcessedStore(), zap.NewNop())
	raw := rawEnvelope(t, "test.event", fakePayload{})

	assert.Equal(t, TransientFailure, d.Dispatch(context.Background(), raw))

	// Como no llegó a Ok, no se marca como procesado y la redistribución
	// vuelve a invocarlo.
	handler.result = Ok
	assert.Equal(t, Ok, d.Dispatch(context.Background(), raw))
	assert.Equal(t, 2, handler.calls)
}
