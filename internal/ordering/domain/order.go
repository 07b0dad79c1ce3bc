package domain

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus es el estado del pedido. Las transiciones son unidireccionales
// (submitted → awaiting_validation → stock_confirmed → paid → shipped);
// cancelled es alcanzable desde cualquier estado no terminal.
type OrderStatus string

const (
	OrderSubmitted          OrderStatus = "submitted"
	OrderAwaitingValidation OrderStatus = "awaiting_validation"
	OrderStockConfirmed     OrderStatus = "stock_confirmed"
	OrderPaid               OrderStatus = "paid"
	OrderShipped            OrderStatus = "shipped"
	OrderCancelled          OrderStatus = "cancelled"
)

// OrderItem es una línea del pedido, referida a un producto del catálogo.
type OrderItem struct {
	ProductID uuid.UUID `json:"product_id"`
	Units     int       `json:"units"`
}

// Order es el agregado de pedido, reducido a lo que toca el núcleo de
// entrega: el estado solo muta a través de los métodos de transición.
type Order struct {
	ID          uuid.UUID   `json:"id"`
	BuyerID     uuid.UUID   `json:"buyer_id"`
	Description string      `json:"description"`
	Items       []OrderItem `json:"items,omitempty"`
	Status      OrderStatus `json:"status"`
	SubmittedAt time.Time   `json:"submitted_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// NewOrder crea un pedido en estado submitted.
func NewOrder(buyerID uuid.UUID, description string, now time.Time) *Order {
	return &Order{
		ID:          uuid.New(),
		BuyerID:     buyerID,
		Description: description,
		Status:      OrderSubmitted,
		SubmittedAt: now.UTC(),
		UpdatedAt:   now.UTC(),
	}
}

// forward define la única transición hacia delante permitida desde cada
// estado. Nunca se retrocede.
var forward = map[OrderStatus]OrderStatus{
	OrderSubmitted:          OrderAwaitingValidation,
	OrderAwaitingValidation: OrderStockConfirmed,
	OrderStockConfirmed:     OrderPaid,
	OrderPaid:               OrderShipped,
}

func (o *Order) advance(to OrderStatus, now time.Time) error {
	if forward[o.Status] != to {
		return ErrInvalidTransition
	}
	o.Status = to
	o.UpdatedAt = now.UTC()
	return nil
}

func (o *Order) SetAwaitingValidationStatus(now time.Time) error {
	return o.advance(OrderAwaitingValidation, now)
}

func (o *Order) SetStockConfirmedStatus(now time.Time) error {
	return o.advance(OrderStockConfirmed, now)
}

func (o *Order) SetPaidStatus(now time.Time) error {
	return o.advance(OrderPaid, now)
}

func (o *Order) SetShippedStatus(now time.Time) error {
	return o.advance(OrderShipped, now)
}

// SetCancelledStatus cancela el pedido. Paid y shipped son terminales a
// efectos de cancelación: un pedido ya cobrado no se cancela por esta vía.
func (o *Order) SetCancelledStatus(now time.Time) error {
	switch o.Status {
	case OrderPaid, OrderShipped, OrderCancelled:
		return ErrInvalidTransition
	}
	o.Status = OrderCancelled
	o.UpdatedAt = now.UTC()
	return nil
}

// IsTerminal indica si el pedido ya no admite más transiciones.
func (o *Order) IsTerminal() bool {
	return o.Status == OrderShipped || o.Status == OrderCancelled
}
