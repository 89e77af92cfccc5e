package services

import (
	"context"
	"strings"

	"github.com/acc-community/acc/acc/cache"
	"github.com/acc-community/acc/acc/database/models"
	"github.com/acc-community/acc/acc/database/repositories"
	"github.com/sahilm/fuzzy"
)

// catalogSearchItems implements fuzzy.Source over catalog entries.
type catalogSearchItems []*models.CatalogItem

func (items catalogSearchItems) Len() int {
	return len(items)
}

func (items catalogSearchItems) String(i int) string {
	return strings.ToLower(items[i].Name)
}

// CatalogService serves the item catalog. The full catalog is the
// site's expensive aggregate read, so it always goes through the cache.
type CatalogService struct {
	catalog repositories.CatalogRepository
	cache   *cache.Cache
}

func NewCatalogService(catalog repositories.CatalogRepository, c *cache.Cache) *CatalogService {
	return &CatalogService{catalog: catalog, cache: c}
}

// All returns every catalog item, cache-through.
func (s *CatalogService) All(ctx context.Context) ([]*models.CatalogItem, error) {
	value, err := s.cache.Get(ctx, cache.CatalogKey(), func(ctx context.Context) (interface{}, error) {
		return s.catalog.GetAll(ctx)
	})
	if err != nil {
		return nil, err
	}
	return value.([]*models.CatalogItem), nil
}

// Search fuzzy-matches the query against item names. Results come back
// in relevance order; an empty query returns the whole catalog.
func (s *CatalogService) Search(ctx context.Context, query string, limit int) ([]*models.CatalogItem, error) {
	items, err := s.All(ctx)
	if err != nil {
		return nil, err
	}

	if query == "" {
		if limit > 0 && len(items) > limit {
			return items[:limit], nil
		}
		return items, nil
	}

	source := catalogSearchItems(items)
	matches := fuzzy.FindFrom(strings.ToLower(query), source)

	results := make([]*models.CatalogItem, 0, len(matches))
	for _, match := range matches {
		results = append(results, items[match.Index])
		if limit > 0 && len(results) >= limit {
			break
		}
	}
	return results, nil
}

// Get returns one item by id.
func (s *CatalogService) Get(ctx context.Context, id int64) (*models.CatalogItem, error) {
	return s.catalog.GetByID(ctx, id)
}

// Import bulk-loads items and invalidates the cached catalog.
func (s *CatalogService) Import(ctx context.Context, items []*models.CatalogItem) (int, error) {
	count, err := s.catalog.BulkCreate(ctx, items)
	if err != nil {
		return 0, err
	}

	s.cache.Delete(cache.CatalogKey())
	return count, nil
}
