package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"e_store/internal/cache"
	"e_store/internal/common"
	"e_store/internal/models"
	"e_store/internal/repositories/products"
	"e_store/internal/search"
)

const searchLimit = 50

// FilterInput carries the raw query parameters of the listing page.
type FilterInput struct {
	City     string
	Search   string
	MinPrice string
	MaxPrice string
}

// ParseFilter treats empty values as "not supplied". Prices must be numbers.
func ParseFilter(in FilterInput) (products.Filter, error) {
	f := products.Filter{City: in.City, Search: in.Search}

	var err error
	if f.MinPrice, err = parsePrice("min_price", in.MinPrice); err != nil {
		return products.Filter{}, err
	}
	if f.MaxPrice, err = parsePrice("max_price", in.MaxPrice); err != nil {
		return products.Filter{}, err
	}
	return f, nil
}

func parsePrice(name, raw string) (*decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be a number", ErrInvalidFilterValue, name)
	}
	return &d, nil
}

type CatalogService struct {
	deps   Deps
	cache  cache.ProductCache
	search search.Index
}

func NewCatalogService(deps Deps, c cache.ProductCache, idx search.Index) *CatalogService {
	if c == nil {
		c = cache.NopProductCache{}
	}
	if idx == nil {
		idx = search.NopIndex{}
	}
	return &CatalogService{deps: deps, cache: c, search: idx}
}

// List returns the products matching f, newest first.
func (s *CatalogService) List(ctx context.Context, f products.Filter) ([]models.Product, error) {
	list, err := s.deps.Repos.Products(s.deps.DB).List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("error listing products: %w", err)
	}
	return list, nil
}

// Get reads through the product cache. The cache generation is read before
// the database so a concurrent invalidation wins over this fill.
func (s *CatalogService) Get(ctx context.Context, id int64) (*models.Product, error) {
	if p, ok := s.cache.GetProduct(ctx, id); ok {
		return p, nil
	}

	gen, genErr := s.cache.Generation(ctx, id)
	if genErr != nil {
		s.deps.log().Warn("product cache unavailable", zap.Int64("product_id", id), zap.Error(genErr))
	}

	p, err := s.deps.Repos.Products(s.deps.DB).GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("error loading product: %w", err)
	}

	if genErr == nil {
		if err := s.cache.SetProduct(ctx, p, gen); err != nil {
			s.deps.log().Warn("product cache write failed", zap.Int64("product_id", id), zap.Error(err))
		}
	}
	return p, nil
}

// Search runs a full-text query, falling back to a name substring match
// when the search index is unavailable.
func (s *CatalogService) Search(ctx context.Context, q string) ([]models.Product, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return s.List(ctx, products.Filter{})
	}

	ids, err := s.search.Search(ctx, q, searchLimit)
	if err != nil {
		if !errors.Is(err, search.ErrDisabled) {
			s.deps.log().Warn("search index unavailable, using database", zap.Error(err))
		}
		return s.List(ctx, products.Filter{Search: q})
	}

	found, err := s.deps.Repos.Products(s.deps.DB).ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("error loading search results: %w", err)
	}

	byID := make(map[int64]models.Product, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	// Keep relevance order; ids of products deleted since indexing are dropped.
	list := make([]models.Product, 0, len(found))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			list = append(list, p)
		}
	}
	return list, nil
}
