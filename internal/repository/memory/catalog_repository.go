package memory

import (
	"time"

	"ai-search-be/pkg/provider"

	"github.com/patrickmn/go-cache"
)

const (
	ChatCatalog      = "chat"
	EmbeddingCatalog = "embedding"
)

// CatalogRepository keeps recent catalog listings for the HTTP model list.
// Sessions never read from it; negotiation always discovers afresh.
type CatalogRepository struct {
	cache *cache.Cache
}

func NewCatalogRepository(ttl time.Duration) *CatalogRepository {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &CatalogRepository{
		cache: cache.New(ttl, 2*ttl),
	}
}

func (r *CatalogRepository) Save(kind string, summary []provider.ProviderSummary) {
	r.cache.Set(kind, summary, cache.DefaultExpiration)
}

func (r *CatalogRepository) Get(kind string) ([]provider.ProviderSummary, bool) {
	if x, found := r.cache.Get(kind); found {
		return x.([]provider.ProviderSummary), true
	}
	return nil, false
}

func (r *CatalogRepository) Invalidate() {
	r.cache.Flush()
}
