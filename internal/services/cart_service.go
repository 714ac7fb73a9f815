package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	domain "github.com/marugo-kitchen/api/internal/domain"
)

var (
	errCartCatalogRequired    = errors.New("cart service: catalog service is required")
	errCartPromotionsRequired = errors.New("cart service: promotion service is required")
	errCartClockRequired      = errors.New("cart service: clock is required")
)

// ErrCartInvalidInput indicates the caller supplied invalid input.
var ErrCartInvalidInput = errors.New("cart service: invalid input")

// ErrCartFlashRejected indicates the product cannot be added as a flash offer.
var ErrCartFlashRejected = errors.New("cart service: flash offer rejected")

// ErrCartFreeDeliveryRejected indicates no free-delivery grant could take effect.
var ErrCartFreeDeliveryRejected = errors.New("cart service: free delivery rejected")

// CartServiceDeps wires the collaborating services for cart operations.
type CartServiceDeps struct {
	Catalog    CatalogService
	Promotions PromotionService
	Clock      func() time.Time
	Logger     func(context.Context, string, map[string]any)
}

type cartSession struct {
	engine    *CartEngine
	zoneLabel string
	updatedAt time.Time
	// revision counts mutations so checkout can detect a cart that changed
	// while an order append was in flight.
	revision uint64
}

type cartService struct {
	catalog    CatalogService
	promotions PromotionService
	now        func() time.Time
	logger     func(context.Context, string, map[string]any)

	mu       sync.Mutex
	sessions map[string]*cartSession
}

// NewCartService constructs a CartService enforcing dependency validation.
func NewCartService(deps CartServiceDeps) (CartService, error) {
	if deps.Catalog == nil {
		return nil, errCartCatalogRequired
	}
	if deps.Promotions == nil {
		return nil, errCartPromotionsRequired
	}
	if deps.Clock == nil {
		return nil, errCartClockRequired
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &cartService{
		catalog:    deps.Catalog,
		promotions: deps.Promotions,
		now:        func() time.Time { return deps.Clock().UTC() },
		logger:     logger,
		sessions:   make(map[string]*cartSession),
	}, nil
}

// GetCart returns the session cart with freshly derived totals. A session
// without a cart yet gets an empty one.
func (s *cartService) GetCart(ctx context.Context, sessionID string) (Cart, error) {
	return s.mutate(ctx, sessionID, "cart.get", nil)
}

// AddItem adds one unit of the product to the cart.
func (s *cartService) AddItem(ctx context.Context, sessionID, productID string, quantity int) (Cart, error) {
	id := strings.TrimSpace(productID)
	if id == "" {
		return Cart{}, fmt.Errorf("%w: product id is required", ErrCartInvalidInput)
	}
	product, err := s.catalog.GetProduct(ctx, id)
	if err != nil {
		return Cart{}, err
	}
	return s.mutate(ctx, sessionID, "cart.item_added", func(session *cartSession, snap RuleSnapshot) error {
		session.engine.AddItem(product, quantity, snap)
		return nil
	})
}

// UpdateQuantity sets the quantity of a regular line.
func (s *cartService) UpdateQuantity(ctx context.Context, sessionID, lineID string, quantity int) (Cart, error) {
	id := strings.TrimSpace(lineID)
	if id == "" {
		return Cart{}, fmt.Errorf("%w: line id is required", ErrCartInvalidInput)
	}
	return s.mutate(ctx, sessionID, "cart.quantity_updated", func(session *cartSession, snap RuleSnapshot) error {
		session.engine.UpdateQuantity(id, quantity, snap)
		return nil
	})
}

// RemoveItem deletes a line from the cart.
func (s *cartService) RemoveItem(ctx context.Context, sessionID, lineID string) (Cart, error) {
	id := strings.TrimSpace(lineID)
	if id == "" {
		return Cart{}, fmt.Errorf("%w: line id is required", ErrCartInvalidInput)
	}
	return s.mutate(ctx, sessionID, "cart.item_removed", func(session *cartSession, snap RuleSnapshot) error {
		session.engine.RemoveItem(id, snap)
		return nil
	})
}

// AddFlashOffer adds the promotional line for an eligible product.
func (s *cartService) AddFlashOffer(ctx context.Context, sessionID, productID string) (Cart, error) {
	id := strings.TrimSpace(productID)
	if id == "" {
		return Cart{}, fmt.Errorf("%w: product id is required", ErrCartInvalidInput)
	}
	product, err := s.catalog.GetProduct(ctx, id)
	if err != nil {
		return Cart{}, err
	}
	return s.mutate(ctx, sessionID, "cart.flash_offer_added", func(session *cartSession, snap RuleSnapshot) error {
		if !session.engine.AddFlashOffer(product, snap) {
			return fmt.Errorf("%w: %s", ErrCartFlashRejected, id)
		}
		return nil
	})
}

// ActivateFreeDelivery waives the delivery fee when the cart qualifies.
func (s *cartService) ActivateFreeDelivery(ctx context.Context, sessionID string) (Cart, error) {
	return s.mutate(ctx, sessionID, "cart.free_delivery_activated", func(session *cartSession, snap RuleSnapshot) error {
		if !session.engine.ActivateFreeDelivery(snap) {
			return ErrCartFreeDeliveryRejected
		}
		return nil
	})
}

// SetZone switches the session's delivery zone and reprices the cart.
func (s *cartService) SetZone(ctx context.Context, sessionID, zoneLabel string) (Cart, error) {
	label := strings.TrimSpace(zoneLabel)
	if label == "" {
		return Cart{}, fmt.Errorf("%w: zone label is required", ErrCartInvalidInput)
	}
	// Resolving the snapshot first rejects unknown labels before anything mutates.
	snap, err := s.promotions.Snapshot(ctx, label)
	if err != nil {
		return Cart{}, err
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return Cart{}, fmt.Errorf("%w: session id is required", ErrCartInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	session := s.sessionLocked(sessionID)
	session.zoneLabel = snap.Zone.Label
	session.engine.Reprice(snap)
	session.updatedAt = s.now()
	session.revision++
	s.logger(ctx, "cart.zone_changed", map[string]any{"session": sessionID, "zone": snap.Zone.Label})
	return s.renderLocked(sessionID, session, snap), nil
}

// ClearCart discards the session cart entirely.
func (s *cartService) ClearCart(ctx context.Context, sessionID string) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return fmt.Errorf("%w: session id is required", ErrCartInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	s.logger(ctx, "cart.cleared", map[string]any{"session": sessionID})
	return nil
}

// mutate runs op against the session engine under the service lock with a
// freshly resolved rule snapshot, then renders the cart. A nil op is a read.
func (s *cartService) mutate(ctx context.Context, sessionID, event string, op func(*cartSession, RuleSnapshot) error) (Cart, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return Cart{}, fmt.Errorf("%w: session id is required", ErrCartInvalidInput)
	}

	s.mu.Lock()
	zoneLabel := ""
	if existing, ok := s.sessions[sessionID]; ok {
		zoneLabel = existing.zoneLabel
	}
	s.mu.Unlock()

	// Snapshot resolution may hit the promotion backend; keep it outside the lock.
	snap, err := s.promotions.Snapshot(ctx, zoneLabel)
	if err != nil {
		return Cart{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	session := s.sessionLocked(sessionID)
	if session.zoneLabel == "" {
		session.zoneLabel = snap.Zone.Label
	}
	if op != nil {
		if err := op(session, snap); err != nil {
			return Cart{}, err
		}
		session.updatedAt = s.now()
		session.revision++
		s.logger(ctx, event, map[string]any{"session": sessionID, "lines": len(session.engine.Lines())})
	}
	return s.renderLocked(sessionID, session, snap), nil
}

func (s *cartService) sessionLocked(sessionID string) *cartSession {
	session, ok := s.sessions[sessionID]
	if !ok {
		session = &cartSession{
			engine:    NewCartEngine(s.now),
			updatedAt: s.now(),
		}
		s.sessions[sessionID] = session
	}
	return session
}

func (s *cartService) renderLocked(sessionID string, session *cartSession, snap RuleSnapshot) Cart {
	totals := session.engine.Totals(snap)
	return domain.Cart{
		SessionID: sessionID,
		Lines:     session.engine.Lines(),
		ZoneLabel: session.zoneLabel,
		Totals:    &totals,
		UpdatedAt: session.updatedAt,
	}
}

// orderDraft is the checkout-relevant view of a cart captured under the
// service lock, plus the revision it was captured at.
type orderDraft struct {
	ZoneLabel string
	LineCount int
	Totals    domain.CartTotals
	revision  uint64
}

// prepareOrder runs the order gate and captures totals under the service
// lock. The lock is NOT held across the returned draft's lifetime, so the
// order backend call never blocks other sessions; completeOrder settles the
// cart afterwards.
func (s *cartService) prepareOrder(ctx context.Context, sessionID string) (orderDraft, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return orderDraft{}, fmt.Errorf("%w: session id is required", ErrCartInvalidInput)
	}

	s.mu.Lock()
	zoneLabel := ""
	if existing, ok := s.sessions[sessionID]; ok {
		zoneLabel = existing.zoneLabel
	}
	s.mu.Unlock()

	// Snapshot resolution may hit the promotion backend; keep it outside the lock.
	snap, err := s.promotions.Snapshot(ctx, zoneLabel)
	if err != nil {
		return orderDraft{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	session := s.sessionLocked(sessionID)
	if session.zoneLabel == "" {
		session.zoneLabel = snap.Zone.Label
	}
	if err := session.engine.CanPlaceOrder(); err != nil {
		return orderDraft{}, err
	}
	return orderDraft{
		ZoneLabel: session.zoneLabel,
		LineCount: len(session.engine.Lines()),
		Totals:    session.engine.Totals(snap),
		revision:  session.revision,
	}, nil
}

// completeOrder empties the cart an order was placed from, provided it has
// not been mutated since the draft was captured. It reports whether the cart
// was cleared.
func (s *cartService) completeOrder(ctx context.Context, sessionID string, revision uint64) bool {
	sessionID = strings.TrimSpace(sessionID)

	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok || session.revision != revision {
		return false
	}
	session.engine.Clear()
	session.updatedAt = s.now()
	session.revision++
	s.logger(ctx, "cart.cleared_after_order", map[string]any{"session": sessionID})
	return true
}
