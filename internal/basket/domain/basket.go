package domain

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrBasketNotFound = errors.New("basket not found")

// BasketItem es una línea de la cesta; guarda el precio al que el comprador
// vio el producto y el anterior si cambió mientras compraba.
type BasketItem struct {
	ProductID    uuid.UUID `json:"product_id"`
	ProductName  string    `json:"product_name"`
	Quantity     int       `json:"quantity"`
	UnitPrice    float64   `json:"unit_price"`
	OldUnitPrice float64   `json:"old_unit_price,omitempty"`
}

// CustomerBasket es la cesta de un comprador.
type CustomerBasket struct {
	BuyerID uuid.UUID    `json:"buyer_id"`
	Items   []BasketItem `json:"items"`
}

// ApplyPriceChange actualiza las líneas afectadas por un cambio de precio y
// devuelve cuántas cambió. Aplicarlo dos veces es inocuo: el precio ya es el
// nuevo.
func (b *CustomerBasket) ApplyPriceChange(productID uuid.UUID, newPrice, oldPrice float64) int {
	updated := 0
	for i := range b.Items {
		if b.Items[i].ProductID != productID || b.Items[i].UnitPrice == newPrice {
			continue
		}
		b.Items[i].OldUnitPrice = oldPrice
		b.Items[i].UnitPrice = newPrice
		updated++
	}
	return updated
}

// BasketRepository define el puerto de persistencia de cestas.
type BasketRepository interface {
	Get(ctx context.Context, buyerID uuid.UUID) (*CustomerBasket, error)
	Save(ctx context.Context, basket *CustomerBasket) error
	Delete(ctx context.Context, buyerID uuid.UUID) error

	// BuyerIDs lista los compradores con cesta activa.
	BuyerIDs(ctx context.Context) ([]uuid.UUID, error)
}
