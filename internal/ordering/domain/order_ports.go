package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ---------- Errores de dominio ----------
var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrBuyerNotFound      = errors.New("buyer not found")
	ErrInvalidTransition  = errors.New("invalid order status transition")
	ErrOrderAlreadyExists = errors.New("order already exists")
)

// ---------- Interfaces (Ports) ----------

// OrderRepository define las operaciones persistentes para Order. Los
// métodos de escritura participan en la transacción abierta que viaja en el
// contexto; las consultas van directas a la base.
type OrderRepository interface {
	Create(ctx context.Context, o *Order) error

	// Debe devolver ErrOrderNotFound si no existe.
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)

	// Update persiste el estado actual del agregado. Debe devolver
	// ErrOrderNotFound si el pedido no existe.
	Update(ctx context.Context, o *Order) error

	// ListByStatusOlderThan devuelve pedidos en el estado dado cuyo envío
	// es anterior al corte, de más antiguo a más reciente.
	ListByStatusOlderThan(ctx context.Context, status OrderStatus, cutoff time.Time, limit int) ([]*Order, error)
}

// BuyerRepository define las operaciones persistentes para Buyer.
type BuyerRepository interface {
	// Debe devolver ErrBuyerNotFound si no existe.
	FindByIdentity(ctx context.Context, identityGUID string) (*Buyer, error)

	// Save inserta o actualiza el comprador con sus métodos de pago,
	// dentro de la transacción del contexto si la hay.
	Save(ctx context.Context, b *Buyer) error
}

// UnitOfWork agrupa escrituras de negocio y de log de eventos en una sola
// transacción. fn recibe un contexto con la transacción abierta y el id
// lógico de transacción; si fn devuelve error, nada llega a commit.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, transactionID uuid.UUID) error) (uuid.UUID, error)
}

// StockConfirmer re-verifica el stock de un pedido al expirar su periodo de
// gracia. ok=false significa rechazo de negocio (cancelar); error significa
// fallo técnico (reintentar en el siguiente tick).
type StockConfirmer interface {
	Confirm(ctx context.Context, o *Order) (bool, error)
}

// ---------- Helpers comunes (cache keys, etc.) ----------

func CacheKeyByID(id uuid.UUID) string {
	return "order:id:" + id.String()
}
