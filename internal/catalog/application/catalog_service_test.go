package application

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/davicafu/ordelab/internal/catalog/domain"
	sharedEvents "github.com/davicafu/ordelab/internal/shared/events"
	"github.com/davicafu/ordelab/tests/mocks"
)

type catalogFixture struct {
	service  *CatalogService
	products *mocks.InMemoryProductRepo
	eventLog *mocks.InMemoryEventLog
	flusher  *mocks.NoopFlusher
}

func newCatalogFixture(t *testing.T) *catalogFixture {
	t.Helper()

	products := mocks.NewInMemoryProductRepo()
	eventLog := mocks.NewInMemoryEventLog()
	uow := mocks.NewInMemoryUnitOfWork(products, eventLog)
	flusher := &mocks.NoopFlusher{}

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	service := NewCatalogService(uow, products, eventLog, flusher, func() time.Time { return now }, zap.NewNop())

	return &catalogFixture{service: service, products: products, eventLog: eventLog, flusher: flusher}
}

func TestUpdatePrice_EmitsPriceChangedEvent(t *testing.T) {
	f := newCatalogFixture(t)

	product, err := f.service.CreateProduct(context.Background(), "Libro de Go", 25.0, 10)
	assert.NoError(t, err)

	updated, err := f.service.UpdatePrice(context.Background(), product.ID, 19.95)
	assert.NoError(t, err)
	assert.Equal(t, 19.95, updated.Price)

	entries := f.eventLog.All()
	assert.Len(t, entries, 1)
	assert.Equal(t, domain.ProductPriceChangedType, entries[0].EventType)

	var payload sharedEvents.ProductPriceChanged
	assert.NoError(t, json.Unmarshal(entries[0].Payload, &payload))
	assert.Equal(t, product.ID, payload.ProductID)
	assert.Equal(t, 25.0, payload.OldPrice)
	assert.Equal(t, 19.95, payload.NewPrice)

	assert.Len(t, f.flusher.Flushed, 1)
}

func TestUpdatePrice_SamePriceEmitsNothing(t *testing.T) {
	f := newCatalogFixture(t)

	product, _ := f.service.CreateProduct(context.Background(), "Libro de Go", 25.0, 10)

	_, err := f.service.UpdatePrice(context.Background(), product.ID, 25.0)
	assert.NoError(t, err)
	assert.Empty(t, f.eventLog.All())
}

func TestUpdatePrice_InvalidPriceRejected(t *testing.T) {
	f := newCatalogFixture(t)

	product, _ := f.service.CreateProduct(context.Background(), "Libro de Go", 25.0, 10)

	_, err := f.service.UpdatePrice(context.Background(), product.ID, -1)
	assert.ErrorIs(t, err, domain.ErrInvalidPrice)

	// El precio no cambió y no hay eventos.
	unchanged, _ := f.products.GetByID(context.Background(), product.ID)
	assert.Equal(t, 25.0, unchanged.Price)
	assert.Empty(t, f.eventLog.All())
}

func TestReserveStock(t *testing.T) {
	f := newCatalogFixture(t)

	product, _ := f.service.CreateProduct(context.Background(), "Libro de Go", 25.0, 3)

	ok, err := f.service.ReserveStock(context.Background(), product.ID, 2)
	assert.NoError(t, err)
	assert.True(t, ok)

	// Quedan 1: pedir 2 más no llega, y no descuenta nada.
	ok, err = f.service.ReserveStock(context.Background(), product.ID, 2)
	assert.NoError(t, err)
	assert.False(t, ok)

	remaining, _ := f.products.GetByID(context.Background(), product.ID)
	assert.Equal(t, 1, remaining.AvailableStock)
}
