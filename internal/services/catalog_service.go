package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/microcosm-cc/bluemonday"

	domain "github.com/marugo-kitchen/api/internal/domain"
	"github.com/marugo-kitchen/api/internal/platform/textutil"
	"github.com/marugo-kitchen/api/internal/repositories"
)

var (
	errCatalogRepositoryRequired = errors.New("catalog service: repository is required")
	errCatalogClockRequired      = errors.New("catalog service: clock is required")
)

// ErrCatalogUnavailable indicates the catalog backend cannot be reached and no
// cached snapshot exists to serve instead.
var ErrCatalogUnavailable = errors.New("catalog service: unavailable")

// ErrCatalogProductNotFound indicates the requested product id is unknown.
var ErrCatalogProductNotFound = errors.New("catalog service: product not found")

// CatalogServiceDeps wires the repository and caching dependencies for catalog reads.
type CatalogServiceDeps struct {
	Repository repositories.CatalogRepository
	RefreshTTL time.Duration
	Clock      func() time.Time
	Logger     func(context.Context, string, map[string]any)
}

type catalogService struct {
	repo      repositories.CatalogRepository
	ttl       time.Duration
	now       func() time.Time
	logger    func(context.Context, string, map[string]any)
	sanitizer *bluemonday.Policy

	mu        sync.RWMutex
	snapshot  []domain.Product
	byID      map[string]domain.Product
	fetchedAt time.Time
}

// NewCatalogService constructs a CatalogService enforcing dependency validation.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Repository == nil {
		return nil, errCatalogRepositoryRequired
	}
	if deps.Clock == nil {
		return nil, errCatalogClockRequired
	}
	ttl := deps.RefreshTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &catalogService{
		repo:      deps.Repository,
		ttl:       ttl,
		now:       func() time.Time { return deps.Clock().UTC() },
		logger:    logger,
		sanitizer: bluemonday.StrictPolicy(),
	}, nil
}

// ListProducts returns the current catalog snapshot, refreshing it from the
// backend when the cache TTL has elapsed. A stale snapshot is served when the
// backend is unavailable.
func (s *catalogService) ListProducts(ctx context.Context) ([]Product, error) {
	snapshot, _, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Product, len(snapshot))
	copy(out, snapshot)
	return out, nil
}

// GetProduct returns a single product by id.
func (s *catalogService) GetProduct(ctx context.Context, productID string) (Product, error) {
	id := strings.TrimSpace(productID)
	if id == "" {
		return Product{}, fmt.Errorf("%w: product id is required", ErrCatalogProductNotFound)
	}
	_, index, err := s.current(ctx)
	if err != nil {
		return Product{}, err
	}
	product, ok := index[id]
	if !ok {
		return Product{}, fmt.Errorf("%w: %s", ErrCatalogProductNotFound, id)
	}
	return product, nil
}

func (s *catalogService) current(ctx context.Context) ([]domain.Product, map[string]domain.Product, error) {
	s.mu.RLock()
	fresh := s.snapshot != nil && s.now().Sub(s.fetchedAt) < s.ttl
	snapshot, index := s.snapshot, s.byID
	s.mu.RUnlock()
	if fresh {
		return snapshot, index, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snapshot != nil && s.now().Sub(s.fetchedAt) < s.ttl {
		return s.snapshot, s.byID, nil
	}

	raw, err := s.repo.ListProducts(ctx)
	if err != nil {
		if s.snapshot != nil {
			s.logger(ctx, "catalog.refresh_failed_serving_stale", map[string]any{
				"error": err.Error(),
				"age":   s.now().Sub(s.fetchedAt).String(),
			})
			return s.snapshot, s.byID, nil
		}
		return nil, nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}

	snapshot = make([]domain.Product, 0, len(raw))
	index = make(map[string]domain.Product, len(raw))
	for _, product := range raw {
		cleaned := s.clean(product)
		if _, exists := index[cleaned.ID]; exists {
			continue
		}
		snapshot = append(snapshot, cleaned)
		index[cleaned.ID] = cleaned
	}

	s.snapshot = snapshot
	s.byID = index
	s.fetchedAt = s.now()
	s.logger(ctx, "catalog.refreshed", map[string]any{"products": len(snapshot)})
	return s.snapshot, s.byID, nil
}

// clean normalises hand-edited worksheet text and strips any markup pasted
// into descriptions. Attributes are re-derived when the ingestion layer left
// them empty.
func (s *catalogService) clean(product domain.Product) domain.Product {
	product.Name = textutil.NormalizeProductText(product.Name)
	product.Description = textutil.NormalizeProductText(s.sanitizer.Sanitize(product.Description))
	product.Category = textutil.NormalizeProductText(product.Category)
	if product.Attributes == (domain.ProductAttributes{}) {
		product.Attributes = domain.ParseProductAttributes(product.ID)
	}
	return product
}
