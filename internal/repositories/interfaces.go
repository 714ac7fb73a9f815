package repositories

import (
	"context"

	domain "github.com/marugo-kitchen/api/internal/domain"
)

// RepositoryError wraps low-level backend failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsUnavailable() bool
}

// CatalogRepository reads the product catalog from the spreadsheet backend.
type CatalogRepository interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
}

// PromotionRepository reads discount tiers, delivery zones, and the flash
// program constants from the spreadsheet backend.
type PromotionRepository interface {
	ListTiers(ctx context.Context) ([]domain.PromotionTier, error)
	ListZones(ctx context.Context) ([]domain.DeliveryZone, error)
	FlashProgram(ctx context.Context) (FlashProgram, error)
}

// FlashProgram holds the flash offer business constants supplied by the backend.
type FlashProgram struct {
	FundingThreshold int64
	DiscountPercent  int64
}

// OrderRepository appends accepted orders to the spreadsheet backend.
type OrderRepository interface {
	AppendOrder(ctx context.Context, row domain.OrderRow) error
}
