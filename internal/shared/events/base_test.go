package events

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNewIntegrationEvent_TakesPartitionKeyFromPayload(t *testing.T) {
	orderID := uuid.New()
	payload := OrderStatusChangedToPaid{OrderID: orderID, OrderStatus: "paid"}

	evt, err := NewIntegrationEvent("ordering.order_status_changed_to_paid", payload)
	assert.NoError(t, err)

	// La clave de partición es el id del agregado, no el id del sobre: los
	// eventos del mismo pedido conservan su orden relativo en el transporte.
	assert.Equal(t, orderID.String(), evt.PartitionKey)
	assert.NotEqual(t, evt.ID.String(), evt.PartitionKey)

	var decoded OrderStatusChangedToPaid
	assert.NoError(t, json.Unmarshal(evt.Data, &decoded))
	assert.Equal(t, orderID, decoded.OrderID)
}

func TestNewIntegrationEvent_PayloadWithoutKeyLeavesKeyEmpty(t *testing.T) {
	evt, err := NewIntegrationEvent("test.plain", struct {
		Value string `json:"value"`
	}{Value: "hola"})
	assert.NoError(t, err)
	assert.Empty(t, evt.PartitionKey)
}

func TestProductPriceChanged_PartitionsByProduct(t *testing.T) {
	productID := uuid.New()
	evt, err := NewIntegrationEvent("catalog.product_price_changed", ProductPriceChanged{
		ProductID: productID,
		NewPrice:  12.5,
		OldPrice:  10.0,
	})
	assert.NoError(t, err)
	assert.Equal(t, productID.String(), evt.PartitionKey)
}
