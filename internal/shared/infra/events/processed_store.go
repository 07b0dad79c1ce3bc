package events

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	sharedBus "github.com/davicafu/ordelab/internal/shared/infra/platform/bus"
	sharedCache "github.com/davicafu/ordelab/internal/shared/infra/platform/cache"
)

// CacheProcessedStore implementa la deduplicación de consumidores sobre la
// caché de plataforma (Redis en producción, memoria en local). La clave
// combina sobre y handler: dos handlers del mismo evento se deduplican por
// separado.
type CacheProcessedStore struct {
	cache   sharedCache.Cache
	ttlSecs int
}

var _ sharedBus.ProcessedStore = (*CacheProcessedStore)(nil)

func NewCacheProcessedStore(cache sharedCache.Cache, ttlSecs int) *CacheProcessedStore {
	return &CacheProcessedStore{cache: cache, ttlSecs: ttlSecs}
}

func processedKey(eventID uuid.UUID, handler string) string {
	return fmt.Sprintf("processed:%s:%s", eventID.String(), handler)
}

func (s *CacheProcessedStore) Seen(ctx context.Context, eventID uuid.UUID, handler string) (bool, error) {
	var marker bool
	return s.cache.Get(ctx, processedKey(eventID, handler), &marker)
}

func (s *CacheProcessedStore) Mark(ctx context.Context, eventID uuid.UUID, handler string) error {
	return s.cache.Set(ctx, processedKey(eventID, handler), true, s.ttlSecs)
}
