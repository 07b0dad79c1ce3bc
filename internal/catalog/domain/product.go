package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrInvalidPrice    = errors.New("price must be greater than zero")
	ErrNotEnoughStock  = errors.New("not enough stock")
)

// Product es el artículo del catálogo. El precio es la fuente de verdad que
// el resto de contextos replican vía eventos de integración.
type Product struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Price          float64   `json:"price"`
	AvailableStock int       `json:"available_stock"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func NewProduct(name string, price float64, stock int, now time.Time) (*Product, error) {
	if price <= 0 {
		return nil, ErrInvalidPrice
	}
	return &Product{
		ID:             uuid.New(),
		Name:           name,
		Price:          price,
		AvailableStock: stock,
		UpdatedAt:      now,
	}, nil
}

// ChangePrice fija el precio nuevo y devuelve el anterior.
func (p *Product) ChangePrice(newPrice float64, now time.Time) (float64, error) {
	if newPrice <= 0 {
		return 0, ErrInvalidPrice
	}
	old := p.Price
	p.Price = newPrice
	p.UpdatedAt = now
	return old, nil
}

// ReserveStock descuenta unidades disponibles.
func (p *Product) ReserveStock(units int, now time.Time) error {
	if units > p.AvailableStock {
		return fmt.Errorf("%w: requested %d, available %d", ErrNotEnoughStock, units, p.AvailableStock)
	}
	p.AvailableStock -= units
	p.UpdatedAt = now
	return nil
}

// ProductRepository define el puerto de persistencia del catálogo.
type ProductRepository interface {
	Create(ctx context.Context, p *Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*Product, error)
	Update(ctx context.Context, p *Product) error
}

// UnitOfWork agrupa escrituras de catálogo y log de eventos en una
// transacción. El id devuelto identifica la transacción comprometida.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, transactionID uuid.UUID) error) (uuid.UUID, error)
}
