package domain

// Eventos de dominio: hechos locales al proceso, despachados de forma
// síncrona dentro de la unidad de trabajo abierta. No viajan por el bus.

const OrderStartedEventName = "ordering.order_started"

// OrderStarted se emite al crear un pedido, antes del commit. El handler de
// validación de comprador reacciona a él dentro de la misma transacción.
type OrderStarted struct {
	Order        *Order
	UserID       string // identidad externa del comprador
	UserName     string
	CardType     string
	CardNumber   string // solo se persiste enmascarado
	CardHolder   string
	CardExpiry   string // MM/YY
}

func (OrderStarted) Name() string { return OrderStartedEventName }

// DomainEvent es la interfaz mínima de un evento de dominio.
type DomainEvent interface {
	Name() string
}
