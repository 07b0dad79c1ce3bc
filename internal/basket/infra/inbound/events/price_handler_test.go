package events

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	basketDomain "github.com/davicafu/ordelab/internal/basket/domain"
	basketCache "github.com/davicafu/ordelab/internal/basket/infra/outbound/cache"
	sharedEvents "github.com/davicafu/ordelab/internal/shared/events"
	sharedBus "github.com/davicafu/ordelab/internal/shared/infra/platform/bus"
	"github.com/davicafu/ordelab/tests/mocks"
)

func envelope(t *testing.T, eventType string, payload interface{}) sharedEvents.IntegrationEvent {
	t.Helper()
	evt, err := sharedEvents.NewIntegrationEvent(eventType, payload)
	assert.NoError(t, err)
	return evt
}

func TestPriceUpdateHandler_UpdatesAffectedBaskets(t *testing.T) {
	store := basketCache.NewBasketStore(mocks.NewDummyCache())
	handler := NewPriceUpdateHandler(store, zap.NewNop())

	productID := uuid.New()
	buyerA, buyerB := uuid.New(), uuid.New()

	_ = store.Save(context.Background(), &basketDomain.CustomerBasket{
		BuyerID: buyerA,
		Items:   []basketDomain.BasketItem{{ProductID: productID, ProductName: "Libro de Go", Quantity: 1, UnitPrice: 25.0}},
	})
	_ = store.Save(context.Background(), &basketDomain.CustomerBasket{
		BuyerID: buyerB,
		Items:   []basketDomain.BasketItem{{ProductID: uuid.New(), ProductName: "Otro", Quantity: 2, UnitPrice: 10.0}},
	})

	change := &sharedEvents.ProductPriceChanged{ProductID: productID, NewPrice: 19.95, OldPrice: 25.0}
	evt := envelope(t, "catalog.product_price_changed", change)

	res := handler.Handle(context.Background(), evt, change)
	assert.Equal(t, sharedBus.Ok, res)

	// La cesta con el producto cambia y conserva el precio antiguo.
	basket, err := store.Get(context.Background(), buyerA)
	assert.NoError(t, err)
	assert.Equal(t, 19.95, basket.Items[0].UnitPrice)
	assert.Equal(t, 25.0, basket.Items[0].OldUnitPrice)

	// La otra cesta no se toca.
	other, _ := store.Get(context.Background(), buyerB)
	assert.Equal(t, 10.0, other.Items[0].UnitPrice)
}

func TestPriceUpdateHandler_IsIdempotent(t *testing.T) {
	store := basketCache.NewBasketStore(mocks.NewDummyCache())
	handler := NewPriceUpdateHandler(store, zap.NewNop())

	productID := uuid.New()
	buyerID := uuid.New()
	_ = store.Save(context.Background(), &basketDomain.CustomerBasket{
		BuyerID: buyerID,
		Items:   []basketDomain.BasketItem{{ProductID: productID, Quantity: 1, UnitPrice: 25.0}},
	})

	change := &sharedEvents.ProductPriceChanged{ProductID: productID, NewPrice: 19.95, OldPrice: 25.0}
	evt := envelope(t, "catalog.product_price_changed", change)

	assert.Equal(t, sharedBus.Ok, handler.Handle(context.Background(), evt, change))
	assert.Equal(t, sharedBus.Ok, handler.Handle(context.Background(), evt, change))

	basket, _ := store.Get(context.Background(), buyerID)
	assert.Equal(t, 19.95, basket.Items[0].UnitPrice)
	assert.Equal(t, 25.0, basket.Items[0].OldUnitPrice)
}

func TestCheckoutCleanupHandler_DeletesBuyerBasket(t *testing.T) {
	store := basketCache.NewBasketStore(mocks.NewDummyCache())
	handler := NewCheckoutCleanupHandler(store, zap.NewNop())

	buyerID := uuid.New()
	_ = store.Save(context.Background(), &basketDomain.CustomerBasket{
		BuyerID: buyerID,
		Items:   []basketDomain.BasketItem{{ProductID: uuid.New(), Quantity: 1, UnitPrice: 25.0}},
	})

	submitted := &sharedEvents.OrderStatusChangedToSubmitted{
		OrderID:     uuid.New(),
		OrderStatus: "submitted",
		BuyerID:     buyerID,
		BuyerName:   "Ana",
	}
	evt := envelope(t, "ordering.order_status_changed.submitted", submitted)

	res := handler.Handle(context.Background(), evt, submitted)
	assert.Equal(t, sharedBus.Ok, res)

	_, err := store.Get(context.Background(), buyerID)
	assert.ErrorIs(t, err, basketDomain.ErrBasketNotFound)

	ids, _ := store.BuyerIDs(context.Background())
	assert.Empty(t, ids)
}
