package services

import (
	"context"

	domain "github.com/marugo-kitchen/api/internal/domain"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Product           = domain.Product
	ProductAttributes = domain.ProductAttributes
	Cart              = domain.Cart
	CartLine          = domain.CartLine
	CartTotals        = domain.CartTotals
	PromotionTier     = domain.PromotionTier
	DeliveryZone      = domain.DeliveryZone
	RuleSnapshot      = domain.RuleSnapshot
	OrderRow          = domain.OrderRow
)

// CatalogService serves the product catalog with ingestion-time attribute
// parsing and snapshot caching.
type CatalogService interface {
	ListProducts(ctx context.Context) ([]Product, error)
	GetProduct(ctx context.Context, productID string) (Product, error)
}

// PromotionService resolves the promotion rule snapshot handed to the cart
// engine on every mutation.
type PromotionService interface {
	Snapshot(ctx context.Context, zoneLabel string) (RuleSnapshot, error)
	ListZones(ctx context.Context) ([]DeliveryZone, error)
}

// CartService manages session-scoped carts and routes mutations through the
// pricing engine.
type CartService interface {
	GetCart(ctx context.Context, sessionID string) (Cart, error)
	AddItem(ctx context.Context, sessionID, productID string, quantity int) (Cart, error)
	UpdateQuantity(ctx context.Context, sessionID, lineID string, quantity int) (Cart, error)
	RemoveItem(ctx context.Context, sessionID, lineID string) (Cart, error)
	AddFlashOffer(ctx context.Context, sessionID, productID string) (Cart, error)
	ActivateFreeDelivery(ctx context.Context, sessionID string) (Cart, error)
	SetZone(ctx context.Context, sessionID, zoneLabel string) (Cart, error)
	ClearCart(ctx context.Context, sessionID string) error
}

// CheckoutService validates carts against the order gate and submits accepted
// orders to the order backend.
type CheckoutService interface {
	ValidateCart(ctx context.Context, sessionID string) error
	SubmitOrder(ctx context.Context, sessionID string) (OrderRow, error)
}
