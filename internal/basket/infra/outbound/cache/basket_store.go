package cache

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	basketDomain "github.com/davicafu/ordelab/internal/basket/domain"
	sharedCache "github.com/davicafu/ordelab/internal/shared/infra/platform/cache"
)

const (
	basketTTLSecs = 7 * 24 * 3600
	indexKey      = "basket:index"
)

// BasketStore persiste cestas sobre la caché de plataforma (Redis en
// producción). Además de cada cesta mantiene un índice de compradores
// activos, para poder recorrer todas las cestas al propagar un cambio de
// precio.
type BasketStore struct {
	cache sharedCache.Cache

	// El índice se actualiza con read-modify-write; el mutex evita perder
	// entradas entre goroutines de este proceso.
	mu sync.Mutex
}

func NewBasketStore(cache sharedCache.Cache) *BasketStore {
	return &BasketStore{cache: cache}
}

func basketKey(buyerID uuid.UUID) string {
	return fmt.Sprintf("basket:%s", buyerID)
}

func (s *BasketStore) Get(ctx context.Context, buyerID uuid.UUID) (*basketDomain.CustomerBasket, error) {
	var basket basketDomain.CustomerBasket
	ok, err := s.cache.Get(ctx, basketKey(buyerID), &basket)
	if err != nil {
		return nil, fmt.Errorf("basket read failed: %w", err)
	}
	if !ok {
		return nil, basketDomain.ErrBasketNotFound
	}
	return &basket, nil
}

func (s *BasketStore) Save(ctx context.Context, basket *basketDomain.CustomerBasket) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.cache.Set(ctx, basketKey(basket.BuyerID), basket, basketTTLSecs); err != nil {
		return fmt.Errorf("basket write failed: %w", err)
	}
	return s.updateIndex(ctx, basket.BuyerID, true)
}

func (s *BasketStore) Delete(ctx context.Context, buyerID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.cache.Delete(ctx, basketKey(buyerID)); err != nil {
		return fmt.Errorf("basket delete failed: %w", err)
	}
	return s.updateIndex(ctx, buyerID, false)
}

func (s *BasketStore) BuyerIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if _, err := s.cache.Get(ctx, indexKey, &ids); err != nil {
		return nil, fmt.Errorf("basket index read failed: %w", err)
	}
	return ids, nil
}

func (s *BasketStore) updateIndex(ctx context.Context, buyerID uuid.UUID, present bool) error {
	var ids []uuid.UUID
	if _, err := s.cache.Get(ctx, indexKey, &ids); err != nil {
		return fmt.Errorf("basket index read failed: %w", err)
	}

	next := ids[:0]
	for _, id := range ids {
		if id != buyerID {
			next = append(next, id)
		}
	}
	if present {
		next = append(next, buyerID)
	}
	return s.cache.Set(ctx, indexKey, next, basketTTLSecs)
}

// Verificación en tiempo de compilación.
var _ basketDomain.BasketRepository = (*BasketStore)(nil)
