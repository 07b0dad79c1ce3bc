package events

import "github.com/google/uuid"

// ProductPriceChanged se publica cuando el catálogo actualiza el precio de un
// producto. Los consumidores (cestas) ajustan sus precios unitarios.
type ProductPriceChanged struct {
	ProductID uuid.UUID `json:"product_id"`
	NewPrice  float64   `json:"new_price"`
	OldPrice  float64   `json:"old_price"`
}

// Los eventos de catálogo se particionan por producto.
func (e ProductPriceChanged) PartitionKey() string { return e.ProductID.String() }
