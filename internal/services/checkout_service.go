package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/marugo-kitchen/api/internal/domain"
	"github.com/marugo-kitchen/api/internal/repositories"
)

var (
	errCheckoutCartsRequired  = errors.New("checkout service: cart service is required")
	errCheckoutOrdersRequired = errors.New("checkout service: order repository is required")
	errCheckoutClockRequired  = errors.New("checkout service: clock is required")
)

// ErrCheckoutUnavailable indicates the order backend rejected or could not
// accept the order; the cart is left untouched so the user can retry.
var ErrCheckoutUnavailable = errors.New("checkout service: unavailable")

// cartAccessor is the cart-service capability checkout relies on: capturing
// an order draft and settling the cart after the order append. The cart lock
// is never held between the two calls.
type cartAccessor interface {
	prepareOrder(ctx context.Context, sessionID string) (orderDraft, error)
	completeOrder(ctx context.Context, sessionID string, revision uint64) bool
}

// CheckoutServiceDeps wires the cart access and order persistence dependencies.
type CheckoutServiceDeps struct {
	Carts       CartService
	Orders      repositories.OrderRepository
	Clock       func() time.Time
	Logger      func(context.Context, string, map[string]any)
	IDGenerator func() string
}

type checkoutService struct {
	carts  cartAccessor
	orders repositories.OrderRepository
	now    func() time.Time
	logger func(context.Context, string, map[string]any)
	newID  func() string
}

// NewCheckoutService constructs a CheckoutService enforcing dependency validation.
func NewCheckoutService(deps CheckoutServiceDeps) (CheckoutService, error) {
	accessor, ok := deps.Carts.(cartAccessor)
	if !ok {
		return nil, errCheckoutCartsRequired
	}
	if deps.Orders == nil {
		return nil, errCheckoutOrdersRequired
	}
	if deps.Clock == nil {
		return nil, errCheckoutClockRequired
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	return &checkoutService{
		carts:  accessor,
		orders: deps.Orders,
		now:    func() time.Time { return deps.Clock().UTC() },
		logger: logger,
		newID:  idGen,
	}, nil
}

// ValidateCart runs the order eligibility gate without side effects.
func (s *checkoutService) ValidateCart(ctx context.Context, sessionID string) error {
	_, err := s.carts.prepareOrder(ctx, sessionID)
	return err
}

// SubmitOrder validates the cart, appends the order row to the backend, and
// empties the cart on success. A backend failure leaves the cart intact. The
// append runs without the cart lock; a cart mutated while the append was in
// flight is kept as-is so the shopper's changes are not silently discarded.
func (s *checkoutService) SubmitOrder(ctx context.Context, sessionID string) (OrderRow, error) {
	draft, err := s.carts.prepareOrder(ctx, sessionID)
	if err != nil {
		return OrderRow{}, err
	}

	row := domain.OrderRow{
		OrderNumber: "MK-" + s.newID(),
		SessionID:   sessionID,
		ZoneLabel:   draft.ZoneLabel,
		LineCount:   draft.LineCount,
		Subtotal:    draft.Totals.RegularSubtotal,
		Discount:    draft.Totals.DiscountAmount,
		DeliveryFee: draft.Totals.DeliveryCost,
		GrandTotal:  draft.Totals.GrandTotal,
		PlacedAt:    s.now(),
	}

	if err := s.orders.AppendOrder(ctx, row); err != nil {
		s.logger(ctx, "checkout.append_failed", map[string]any{
			"session": sessionID,
			"error":   err.Error(),
		})
		return OrderRow{}, fmt.Errorf("%w: %v", ErrCheckoutUnavailable, err)
	}

	if !s.carts.completeOrder(ctx, sessionID, draft.revision) {
		s.logger(ctx, "checkout.cart_changed_during_submit", map[string]any{
			"session": sessionID,
			"order":   row.OrderNumber,
		})
	}
	s.logger(ctx, "checkout.order_placed", map[string]any{
		"session":     sessionID,
		"order":       row.OrderNumber,
		"grand_total": row.GrandTotal,
	})
	return row, nil
}
