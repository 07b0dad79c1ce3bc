package domain

import (
	"reflect"

	sharedEvents "github.com/davicafu/ordelab/internal/shared/events"
)

// Tags de los eventos de integración del contexto de pedidos.
const (
	OrderStatusChangedToSubmittedType          = "ordering.order_status_changed.submitted"
	OrderStatusChangedToAwaitingValidationType = "ordering.order_status_changed.awaiting_validation"
	OrderStatusChangedToStockConfirmedType     = "ordering.order_status_changed.stock_confirmed"
	OrderStatusChangedToPaidType               = "ordering.order_status_changed.paid"
	OrderStatusChangedToShippedType            = "ordering.order_status_changed.shipped"
	OrderStatusChangedToCancelledType          = "ordering.order_status_changed.cancelled"
	GracePeriodConfirmedType                   = "ordering.grace_period_confirmed"
)

const OrderTopic = "ordering"

func NewEventRegistry() map[string]sharedEvents.EventMetadata {
	return map[string]sharedEvents.EventMetadata{
		OrderStatusChangedToSubmittedType: {
			Type:  reflect.TypeOf(sharedEvents.OrderStatusChangedToSubmitted{}),
			Topic: OrderTopic,
		},
		OrderStatusChangedToAwaitingValidationType: {
			Type:  reflect.TypeOf(sharedEvents.OrderStatusChangedToAwaitingValidation{}),
			Topic: OrderTopic,
		},
		OrderStatusChangedToStockConfirmedType: {
			Type:  reflect.TypeOf(sharedEvents.OrderStatusChangedToStockConfirmed{}),
			Topic: OrderTopic,
		},
		OrderStatusChangedToPaidType: {
			Type:  reflect.TypeOf(sharedEvents.OrderStatusChangedToPaid{}),
			Topic: OrderTopic,
		},
		OrderStatusChangedToShippedType: {
			Type:  reflect.TypeOf(sharedEvents.OrderStatusChangedToShipped{}),
			Topic: OrderTopic,
		},
		OrderStatusChangedToCancelledType: {
			Type:  reflect.TypeOf(sharedEvents.OrderStatusChangedToCancelled{}),
			Topic: OrderTopic,
		},
		GracePeriodConfirmedType: {
			Type:  reflect.TypeOf(sharedEvents.GracePeriodConfirmed{}),
			Topic: OrderTopic,
		},
	}
}
