package stock

import (
	"context"

	"go.uber.org/zap"

	catalogApp "github.com/davicafu/ordelab/internal/catalog/application"
	orderingDomain "github.com/davicafu/ordelab/internal/ordering/domain"
)

// CatalogStockConfirmer verifica el stock de un pedido contra el catálogo,
// reservando las unidades de cada línea. Si alguna línea no tiene stock, el
// pedido se rechaza; un pedido sin líneas se confirma sin más.
type CatalogStockConfirmer struct {
	catalog *catalogApp.CatalogService
	log     *zap.Logger
}

func NewCatalogStockConfirmer(catalog *catalogApp.CatalogService, log *zap.Logger) *CatalogStockConfirmer {
	return &CatalogStockConfirmer{catalog: catalog, log: log}
}

func (c *CatalogStockConfirmer) Confirm(ctx context.Context, o *orderingDomain.Order) (bool, error) {
	for _, item := range o.Items {
		ok, err := c.catalog.ReserveStock(ctx, item.ProductID, item.Units)
		if err != nil {
			return false, err
		}
		if !ok {
			c.log.Info("🛑 Stock insuficiente",
				zap.String("order_id", o.ID.String()),
				zap.String("product_id", item.ProductID.String()),
				zap.Int("units", item.Units),
			)
			return false, nil
		}
	}
	return true, nil
}

// Verificación en tiempo de compilación.
var _ orderingDomain.StockConfirmer = (*CatalogStockConfirmer)(nil)
