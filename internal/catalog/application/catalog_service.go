package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/davicafu/ordelab/internal/catalog/domain"
	sharedDomain "github.com/davicafu/ordelab/internal/shared/domain"
	sharedEvents "github.com/davicafu/ordelab/internal/shared/events"
)

// Clock es la fuente de tiempo inyectable.
type Clock func() time.Time

// OutboxFlusher publica las entradas del log de una transacción ya
// comprometida.
type OutboxFlusher interface {
	PublishForTransaction(ctx context.Context, transactionID uuid.UUID)
}

// CatalogService define los casos de uso del catálogo. Igual que en pedidos,
// cada mutación escribe negocio + log de eventos en una transacción y
// publica tras el commit.
type CatalogService struct {
	uow      domain.UnitOfWork
	products domain.ProductRepository
	eventLog sharedDomain.EventLogRepository
	flusher  OutboxFlusher
	clock    Clock
	log      *zap.Logger
}

func NewCatalogService(
	uow domain.UnitOfWork,
	products domain.ProductRepository,
	eventLog sharedDomain.EventLogRepository,
	flusher OutboxFlusher,
	clock Clock,
	log *zap.Logger,
) *CatalogService {
	return &CatalogService{
		uow:      uow,
		products: products,
		eventLog: eventLog,
		flusher:  flusher,
		clock:    clock,
		log:      log,
	}
}

// CreateProduct da de alta un producto.
func (s *CatalogService) CreateProduct(ctx context.Context, name string, price float64, stock int) (*domain.Product, error) {
	product, err := domain.NewProduct(name, price, stock, s.clock())
	if err != nil {
		return nil, err
	}

	_, err = s.uow.Do(ctx, func(txCtx context.Context, transactionID uuid.UUID) error {
		return s.products.Create(txCtx, product)
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

// GetProduct obtiene un producto por id.
func (s *CatalogService) GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return s.products.GetByID(ctx, id)
}

// UpdatePrice cambia el precio y encola ProductPriceChanged en la misma
// transacción. Si el precio no cambia, no hay evento.
func (s *CatalogService) UpdatePrice(ctx context.Context, productID uuid.UUID, newPrice float64) (*domain.Product, error) {
	var product *domain.Product

	txID, err := s.uow.Do(ctx, func(txCtx context.Context, transactionID uuid.UUID) error {
		var err error
		product, err = s.products.GetByID(txCtx, productID)
		if err != nil {
			return err
		}

		oldPrice, err := product.ChangePrice(newPrice, s.clock())
		if err != nil {
			return err
		}
		if err := s.products.Update(txCtx, product); err != nil {
			return err
		}
		if oldPrice == newPrice {
			return nil
		}

		evt, err := sharedEvents.NewIntegrationEvent(domain.ProductPriceChangedType, sharedEvents.ProductPriceChanged{
			ProductID: product.ID,
			NewPrice:  newPrice,
			OldPrice:  oldPrice,
		})
		if err != nil {
			return fmt.Errorf("failed to build price changed event: %w", err)
		}
		return s.eventLog.Save(txCtx, sharedDomain.NewEventLogEntry(evt, transactionID))
	})
	if err != nil {
		return nil, err
	}

	s.flusher.PublishForTransaction(ctx, txID)

	s.log.Info("🧾 Precio actualizado",
		zap.String("product_id", product.ID.String()),
		zap.Float64("price", product.Price),
	)
	return product, nil
}

// ReserveStock descuenta stock para un pedido. Devuelve false, sin error, si
// no hay unidades suficientes.
func (s *CatalogService) ReserveStock(ctx context.Context, productID uuid.UUID, units int) (bool, error) {
	ok := false
	_, err := s.uow.Do(ctx, func(txCtx context.Context, transactionID uuid.UUID) error {
		product, err := s.products.GetByID(txCtx, productID)
		if err != nil {
			return err
		}
		if err := product.ReserveStock(units, s.clock()); err != nil {
			if errors.Is(err, domain.ErrNotEnoughStock) {
				return nil
			}
			return err
		}
		ok = true
		return s.products.Update(txCtx, product)
	})
	if err != nil {
		return false, err
	}
	return ok, nil
}
