package services

import (
	"errors"
	"sort"
	"strings"
	"time"

	domain "github.com/marugo-kitchen/api/internal/domain"
)

// ErrCheckoutFlashUnfunded signals that a flash offer line no longer meets its
// funding condition; checkout is blocked until the cart is fixed or the line removed.
var ErrCheckoutFlashUnfunded = errors.New("cart engine: flash items unfunded")

// ErrCheckoutEmptyCart signals that the cart contains nothing orderable.
var ErrCheckoutEmptyCart = errors.New("cart engine: empty cart")

// CartEngine owns a single cart's line collection and re-derives the synthetic
// lines and cross-line invariants after every mutation. It is a synchronous,
// single-threaded state machine: callers serialise access and hand in promotion
// inputs as plain snapshots on each call.
type CartEngine struct {
	lines []domain.CartLine
	now   func() time.Time
}

// NewCartEngine constructs an empty cart engine. A nil clock defaults to time.Now.
func NewCartEngine(clock func() time.Time) *CartEngine {
	if clock == nil {
		clock = time.Now
	}
	return &CartEngine{
		lines: []domain.CartLine{},
		now:   func() time.Time { return clock().UTC() },
	}
}

// Lines returns a copy of the current line collection.
func (e *CartEngine) Lines() []domain.CartLine {
	out := make([]domain.CartLine, len(e.lines))
	copy(out, e.lines)
	for i := range out {
		if out[i].OriginalPrice != nil {
			v := *out[i].OriginalPrice
			out[i].OriginalPrice = &v
		}
	}
	return out
}

// AddItem merges the product into the cart. An existing regular line for the
// same product is incremented by one; otherwise a new line is appended with
// the requested quantity (clamped to at least one).
func (e *CartEngine) AddItem(product domain.Product, quantity int, snap domain.RuleSnapshot) {
	id := strings.TrimSpace(product.ID)
	if id == "" {
		return
	}
	defer e.recompute(snap)

	for i := range e.lines {
		if e.lines[i].Kind == domain.LineRegular && e.lines[i].ProductID == id {
			e.lines[i].Quantity++
			return
		}
	}

	if quantity < 1 {
		quantity = 1
	}
	e.lines = append(e.lines, domain.CartLine{
		ID:        id,
		ProductID: id,
		Name:      product.Name,
		UnitPrice: product.Price,
		Quantity:  quantity,
		Kind:      domain.LineRegular,
		IsSet:     product.Attributes.IsSet,
		AddedAt:   e.now(),
	})
}

// UpdateQuantity sets the quantity of a regular line. Zero or negative
// quantities remove the line regardless of its kind, matching RemoveItem;
// positive quantities only apply to regular lines. Unknown ids are no-ops.
func (e *CartEngine) UpdateQuantity(lineID string, quantity int, snap domain.RuleSnapshot) {
	idx := e.indexOf(lineID)
	if idx < 0 {
		return
	}
	if quantity <= 0 {
		e.RemoveItem(lineID, snap)
		return
	}
	if e.lines[idx].Kind != domain.LineRegular {
		return
	}
	e.lines[idx].Quantity = quantity
	e.recompute(snap)
}

// RemoveItem deletes the line with the given id. Cascading effects (delivery
// removal, flash funding flags) follow from the recompute pass. Unknown ids
// are no-ops.
func (e *CartEngine) RemoveItem(lineID string, snap domain.RuleSnapshot) {
	idx := e.indexOf(lineID)
	if idx < 0 {
		return
	}
	e.lines = append(e.lines[:idx], e.lines[idx+1:]...)
	e.recompute(snap)
}

// AddFlashOffer appends the time-limited 99%-off promotional line for the
// product. The offer is refused when a flash line for the product already
// exists, the product is set-marked, or it is not flash eligible. Returns
// whether the line was added.
func (e *CartEngine) AddFlashOffer(product domain.Product, snap domain.RuleSnapshot) bool {
	id := strings.TrimSpace(product.ID)
	if id == "" {
		return false
	}
	if product.Attributes.IsSet || !product.Attributes.IsFlashEligible {
		return false
	}
	flashID := id + domain.FlashLineSuffix
	if e.indexOf(flashID) >= 0 {
		return false
	}

	percent := snap.FlashPercent
	if percent <= 0 {
		percent = defaultFlashPercent
	}
	original := product.Price
	e.lines = append(e.lines, domain.CartLine{
		ID:            flashID,
		ProductID:     id,
		Name:          product.Name,
		UnitPrice:     domain.RoundPercent(original, percent),
		OriginalPrice: &original,
		Quantity:      1,
		Kind:          domain.LineFlashOffer,
		AddedAt:       e.now(),
	})
	e.recompute(snap)
	return true
}

// ActivateFreeDelivery waives the current delivery fee, recording the prior
// cost so the grant can be revoked. The grant is threshold-gated continuously:
// the recompute pass reverts it as soon as the qualifying subtotal falls below
// the zone's free-delivery threshold. Returns whether a grant took effect.
func (e *CartEngine) ActivateFreeDelivery(snap domain.RuleSnapshot) bool {
	idx := e.indexOf(domain.DeliveryLineID)
	if idx < 0 {
		return false
	}
	if e.lines[idx].Kind == domain.LineFreeDelivery {
		return false
	}
	prior := e.lines[idx].UnitPrice
	e.lines[idx].Kind = domain.LineFreeDelivery
	e.lines[idx].OriginalPrice = &prior
	e.lines[idx].UnitPrice = 0
	e.recompute(snap)
	// The grant may be revoked within the same pass when the cart does not
	// actually qualify for the zone threshold.
	if idx := e.indexOf(domain.DeliveryLineID); idx >= 0 {
		return e.lines[idx].Kind == domain.LineFreeDelivery
	}
	return false
}

// Reprice re-derives synthetic lines against a new snapshot without touching
// caller-owned lines. Used when the delivery zone changes mid-session.
func (e *CartEngine) Reprice(snap domain.RuleSnapshot) {
	e.recompute(snap)
}

// Clear empties the cart entirely. No line survives.
func (e *CartEngine) Clear() {
	e.lines = []domain.CartLine{}
}

// recompute is the invariant re-derivation pass. It runs after every mutation
// and is idempotent: a second run over its own output changes nothing.
func (e *CartEngine) recompute(snap domain.RuleSnapshot) {
	e.syncDeliveryPresence(snap.Zone)
	e.refreshDeliveryPricing(snap.Zone)
	e.flagFlashFunding(snap)
}

// syncDeliveryPresence enforces that exactly one delivery line exists iff at
// least one regular line exists.
func (e *CartEngine) syncDeliveryPresence(zone domain.DeliveryZone) {
	hasRegular := false
	for _, line := range e.lines {
		if line.Kind == domain.LineRegular {
			hasRegular = true
			break
		}
	}

	idx := e.indexOf(domain.DeliveryLineID)
	switch {
	case hasRegular && idx < 0:
		e.lines = append(e.lines, domain.CartLine{
			ID:        domain.DeliveryLineID,
			Name:      deliveryLineName(zone),
			UnitPrice: zone.Cost,
			Quantity:  1,
			Kind:      domain.LineDelivery,
			AddedAt:   e.now(),
		})
	case !hasRegular && idx >= 0:
		e.lines = append(e.lines[:idx], e.lines[idx+1:]...)
	}
}

// refreshDeliveryPricing keeps a paid delivery line tracking the current zone
// cost and revokes a free-delivery grant once the qualifying subtotal drops
// below the zone threshold. Earning compares with >=, revoking with <, so a
// subtotal sitting exactly on the threshold never oscillates.
func (e *CartEngine) refreshDeliveryPricing(zone domain.DeliveryZone) {
	idx := e.indexOf(domain.DeliveryLineID)
	if idx < 0 {
		return
	}

	if e.lines[idx].Kind == domain.LineFreeDelivery {
		if e.qualifyingSubtotal() < zone.FreeFrom {
			e.lines[idx].Kind = domain.LineDelivery
			e.lines[idx].OriginalPrice = nil
			e.lines[idx].UnitPrice = zone.Cost
			e.lines[idx].Name = deliveryLineName(zone)
		}
		return
	}

	e.lines[idx].UnitPrice = zone.Cost
	e.lines[idx].Name = deliveryLineName(zone)
}

// flagFlashFunding marks every flash line whose funding subtotal (regular,
// non-set lines) sits below the flash program threshold. Violating lines stay
// in the cart so the storefront can warn the user; only checkout is blocked.
func (e *CartEngine) flagFlashFunding(snap domain.RuleSnapshot) {
	funding := e.fundingSubtotal()
	for i := range e.lines {
		if e.lines[i].Kind != domain.LineFlashOffer {
			continue
		}
		e.lines[i].ViolatesCondition = funding < snap.FlashThreshold
	}
}

// qualifyingSubtotal sums all regular lines, set-marked included. It gates the
// free-delivery grant.
func (e *CartEngine) qualifyingSubtotal() int64 {
	var total int64
	for _, line := range e.lines {
		if line.Kind == domain.LineRegular {
			total += line.Total()
		}
	}
	return total
}

// fundingSubtotal sums regular lines excluding set-marked products. It gates
// flash offers and the discount tiers.
func (e *CartEngine) fundingSubtotal() int64 {
	var total int64
	for _, line := range e.lines {
		if line.Kind == domain.LineRegular && !line.IsSet {
			total += line.Total()
		}
	}
	return total
}

// Totals derives the monetary snapshot for the current lines. It is a pure
// read; the line collection is never mutated.
func (e *CartEngine) Totals(snap domain.RuleSnapshot) domain.CartTotals {
	subtotal := e.fundingSubtotal()

	totals := domain.CartTotals{RegularSubtotal: subtotal}
	if tier, ok := resolveTier(snap.Tiers, subtotal); ok {
		totals.DiscountPercent = tier.DiscountPercent
		totals.DiscountAmount = domain.RoundPercent(subtotal, tier.DiscountPercent)
		min := tier.MinTotal
		totals.TierMinTotal = &min
	}

	var sum int64
	for _, line := range e.lines {
		if line.IsDelivery() {
			totals.DeliveryCost = line.UnitPrice
			continue
		}
		sum += line.Total()
	}

	totals.GrandTotal = sum - totals.DiscountAmount + totals.DeliveryCost
	if totals.GrandTotal < 0 {
		totals.GrandTotal = 0
	}
	return totals
}

// CanPlaceOrder is the checkout eligibility gate. It is a pure read and
// returns the specific blocking reason, if any.
func (e *CartEngine) CanPlaceOrder() error {
	orderable := false
	for _, line := range e.lines {
		switch line.Kind {
		case domain.LineFlashOffer:
			if line.ViolatesCondition {
				return ErrCheckoutFlashUnfunded
			}
			orderable = true
		case domain.LineRegular:
			orderable = true
		}
	}
	if !orderable {
		return ErrCheckoutEmptyCart
	}
	return nil
}

func (e *CartEngine) indexOf(lineID string) int {
	target := strings.TrimSpace(lineID)
	if target == "" {
		return -1
	}
	for i, line := range e.lines {
		if line.ID == target {
			return i
		}
	}
	return -1
}

// resolveTier picks the single tier with the greatest MinTotal not exceeding
// the subtotal. Equal thresholds resolve to the higher percentage.
func resolveTier(tiers []domain.PromotionTier, subtotal int64) (domain.PromotionTier, bool) {
	if len(tiers) == 0 {
		return domain.PromotionTier{}, false
	}
	sorted := make([]domain.PromotionTier, len(tiers))
	copy(sorted, tiers)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].MinTotal == sorted[j].MinTotal {
			return sorted[i].DiscountPercent > sorted[j].DiscountPercent
		}
		return sorted[i].MinTotal > sorted[j].MinTotal
	})
	for _, tier := range sorted {
		if tier.MinTotal <= subtotal {
			return tier, true
		}
	}
	return domain.PromotionTier{}, false
}

func deliveryLineName(zone domain.DeliveryZone) string {
	label := strings.TrimSpace(zone.Label)
	if label == "" {
		return "Delivery"
	}
	return "Delivery (" + label + ")"
}
