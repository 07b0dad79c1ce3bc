package events

import (
	"time"

	"github.com/google/uuid"
)

// Payloads de los eventos de integración del contexto de pedidos.
// Cada cambio de estado es autocontenido: lleva el id del pedido y el estado
// nuevo, nunca un estado "siguiente" relativo, para que el orden de entrega
// entre agregados no importe.

type OrderStatusChangedToSubmitted struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderStatus string    `json:"order_status"`
	BuyerID     uuid.UUID `json:"buyer_id"`
	BuyerName   string    `json:"buyer_name"`
}

type OrderStatusChangedToAwaitingValidation struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderStatus string    `json:"order_status"`
}

type OrderStatusChangedToStockConfirmed struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderStatus string    `json:"order_status"`
}

type OrderStatusChangedToPaid struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderStatus string    `json:"order_status"`
}

type OrderStatusChangedToShipped struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderStatus string    `json:"order_status"`
}

type OrderStatusChangedToCancelled struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderStatus string    `json:"order_status"`
	Reason      string    `json:"reason,omitempty"`
}

// GracePeriodConfirmed indica que el periodo de gracia de un pedido expiró
// sin cancelación por parte del comprador.
type GracePeriodConfirmed struct {
	OrderID     uuid.UUID `json:"order_id"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Todos los eventos de pedido se particionan por el id del pedido: el
// transporte conserva el orden relativo de los cambios de estado.

func (e OrderStatusChangedToSubmitted) PartitionKey() string          { return e.OrderID.String() }
func (e OrderStatusChangedToAwaitingValidation) PartitionKey() string { return e.OrderID.String() }
func (e OrderStatusChangedToStockConfirmed) PartitionKey() string     { return e.OrderID.String() }
func (e OrderStatusChangedToPaid) PartitionKey() string               { return e.OrderID.String() }
func (e OrderStatusChangedToShipped) PartitionKey() string            { return e.OrderID.String() }
func (e OrderStatusChangedToCancelled) PartitionKey() string          { return e.OrderID.String() }
func (e GracePeriodConfirmed) PartitionKey() string                   { return e.OrderID.String() }
