package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	sharedDomain "github.com/davicafu/ordelab/internal/shared/domain"
)

// MockEventLogRepository simula el log de eventos con expectativas testify.
type MockEventLogRepository struct {
	mock.Mock
}

func (m *MockEventLogRepository) Save(ctx context.Context, entry sharedDomain.EventLogEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockEventLogRepository) PendingByTransaction(ctx context.Context, transactionID uuid.UUID) ([]sharedDomain.EventLogEntry, error) {
	args := m.Called(ctx, transactionID)
	return args.Get(0).([]sharedDomain.EventLogEntry), args.Error(1)
}

func (m *MockEventLogRepository) PendingAll(ctx context.Context, limit int) ([]sharedDomain.EventLogEntry, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]sharedDomain.EventLogEntry), args.Error(1)
}

func (m *MockEventLogRepository) MarkInProgress(ctx context.Context, eventID uuid.UUID) error {
	args := m.Called(ctx, eventID)
	return args.Error(0)
}

func (m *MockEventLogRepository) MarkPublished(ctx context.Context, eventID uuid.UUID) error {
	args := m.Called(ctx, eventID)
	return args.Error(0)
}

func (m *MockEventLogRepository) MarkFailed(ctx context.Context, eventID uuid.UUID) error {
	args := m.Called(ctx, eventID)
	return args.Error(0)
}

// InMemoryEventLog implementa el log de eventos sobre un mapa, con la misma
// semántica de estados que los repos reales.
type InMemoryEventLog struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*sharedDomain.EventLogEntry
	seq     map[uuid.UUID]int // orden de inserción, para ordenar con relojes fijos
	nextSeq int
}

var _ sharedDomain.EventLogRepository = (*InMemoryEventLog)(nil)

func NewInMemoryEventLog() *InMemoryEventLog {
	return &InMemoryEventLog{
		entries: make(map[uuid.UUID]*sharedDomain.EventLogEntry),
		seq:     make(map[uuid.UUID]int),
	}
}

// Append inserta una entrada directamente, sin pasar por transacción.
func (l *InMemoryEventLog) Append(entry sharedDomain.EventLogEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	cp := entry
	l.entries[entry.EventID] = &cp
	if _, ok := l.seq[entry.EventID]; !ok {
		l.seq[entry.EventID] = l.nextSeq
		l.nextSeq++
	}
	return nil
}

func (l *InMemoryEventLog) Save(ctx context.Context, entry sharedDomain.EventLogEntry) error {
	return l.Append(entry)
}

// Entry devuelve una copia de la entrada, si existe.
func (l *InMemoryEventLog) Entry(eventID uuid.UUID) (sharedDomain.EventLogEntry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[eventID]
	if !ok {
		return sharedDomain.EventLogEntry{}, false
	}
	return *e, true
}

// All devuelve todas las entradas ordenadas por creación.
func (l *InMemoryEventLog) All() []sharedDomain.EventLogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]sharedDomain.EventLogEntry, 0, len(l.entries))
	for _, e := range l.entries {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return l.seq[out[i].EventID] < l.seq[out[j].EventID] })
	return out
}

func (l *InMemoryEventLog) pending(filter func(*sharedDomain.EventLogEntry) bool, limit int) []sharedDomain.EventLogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []sharedDomain.EventLogEntry
	for _, e := range l.entries {
		if filter(e) {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return l.seq[out[i].EventID] < l.seq[out[j].EventID] })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (l *InMemoryEventLog) PendingByTransaction(ctx context.Context, transactionID uuid.UUID) ([]sharedDomain.EventLogEntry, error) {
	return l.pending(func(e *sharedDomain.EventLogEntry) bool {
		return e.TransactionID == transactionID && e.State == sharedDomain.EventNotPublished
	}, 0), nil
}

func (l *InMemoryEventLog) PendingAll(ctx context.Context, limit int) ([]sharedDomain.EventLogEntry, error) {
	return l.pending(func(e *sharedDomain.EventLogEntry) bool {
		return e.State == sharedDomain.EventNotPublished || e.State == sharedDomain.EventPublishFailed
	}, limit), nil
}

// MarkInProgress reclama la entrada solo desde NotPublished/PublishFailed,
// igual que el UPDATE condicionado de los repos SQL.
func (l *InMemoryEventLog) MarkInProgress(ctx context.Context, eventID uuid.UUID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[eventID]
	if !ok || (e.State != sharedDomain.EventNotPublished && e.State != sharedDomain.EventPublishFailed) {
		return fmt.Errorf("claim event %s: %w", eventID, sharedDomain.ErrAlreadyClaimed)
	}
	e.State = sharedDomain.EventInProgress
	return nil
}

func (l *InMemoryEventLog) MarkPublished(ctx context.Context, eventID uuid.UUID) error {
	return l.resolve(eventID, sharedDomain.EventPublished)
}

func (l *InMemoryEventLog) MarkFailed(ctx context.Context, eventID uuid.UUID) error {
	return l.resolve(eventID, sharedDomain.EventPublishFailed)
}

func (l *InMemoryEventLog) resolve(eventID uuid.UUID, state sharedDomain.EventLogState) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok := l.entries[eventID]; ok && e.State == sharedDomain.EventInProgress {
		e.State = state
	}
	// Cero filas afectadas no es error: otra réplica resolvió antes.
	return nil
}

// Snapshot/Restore permiten que el log participe en el rollback de la
// unidad de trabajo en memoria.
func (l *InMemoryEventLog) Snapshot() interface{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	snap := make(map[uuid.UUID]*sharedDomain.EventLogEntry, len(l.entries))
	for k, v := range l.entries {
		cp := *v
		snap[k] = &cp
	}
	return snap
}

func (l *InMemoryEventLog) Restore(snapshot interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = snapshot.(map[uuid.UUID]*sharedDomain.EventLogEntry)
}
