package catalog

import "context"

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	GetProduct(ctx context.Context, code string) (*Product, error)
	UpsertProduct(ctx context.Context, p Product) error
	ListProducts(ctx context.Context, limit, offset int) ([]Product, error)
}

// Service serves catalog reads, with pricing cached.
type Service struct {
	repo  RepositoryPort
	cache *PriceCache
}

// NewService builds Service.
func NewService(repo RepositoryPort, cache *PriceCache) *Service {
	return &Service{repo: repo, cache: cache}
}

// GetProduct returns the full product including current stock. Never
// cached; stock reads must always hit the store.
func (s *Service) GetProduct(ctx context.Context, code string) (*Product, error) {
	return s.repo.GetProduct(ctx, code)
}

// GetPricing returns the current price and tax rate for a product,
// served from cache when fresh.
func (s *Service) GetPricing(ctx context.Context, code string) (Pricing, error) {
	if p, ok := s.cache.Get(ctx, code); ok {
		return p, nil
	}
	product, err := s.repo.GetProduct(ctx, code)
	if err != nil {
		return Pricing{}, err
	}
	pricing := Pricing{Price: product.Price, TaxPercent: product.TaxPercent}
	s.cache.Set(ctx, code, pricing)
	return pricing, nil
}

// UpsertProduct writes a catalog entry and invalidates its cached pricing.
func (s *Service) UpsertProduct(ctx context.Context, req UpsertProductRequest) error {
	err := s.repo.UpsertProduct(ctx, Product{
		Code:       req.Code,
		Name:       req.Name,
		Price:      req.Price,
		TaxPercent: req.TaxPercent,
		Stock:      req.Stock,
	})
	if err != nil {
		return err
	}
	return s.cache.Invalidate(ctx, req.Code)
}

// ListProducts returns a page of the catalog.
func (s *Service) ListProducts(ctx context.Context, limit, offset int) ([]Product, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListProducts(ctx, limit, offset)
}
