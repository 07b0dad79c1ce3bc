package domain

import (
	"reflect"

	sharedEvents "github.com/davicafu/ordelab/internal/shared/events"
)

// Tags de los eventos de integración del catálogo.
const (
	ProductPriceChangedType = "catalog.product_price_changed"
)

const CatalogTopic = "catalog"

func NewEventRegistry() map[string]sharedEvents.EventMetadata {
	return map[string]sharedEvents.EventMetadata{
		ProductPriceChangedType: {
			Type:  reflect.TypeOf(sharedEvents.ProductPriceChanged{}),
			Topic: CatalogTopic,
		},
	}
}
