package domain

import "time"

// LineKind classifies a cart line and determines which pricing rules apply to it.
type LineKind string

const (
	// LineRegular is a purchasable catalog product at normal participation in discounts.
	LineRegular LineKind = "regular"
	// LineDelivery is the synthetic paid delivery fee line derived from cart contents.
	LineDelivery LineKind = "delivery"
	// LineFlashOffer is a deeply discounted, quantity-pinned, conditionally funded promotional line.
	LineFlashOffer LineKind = "flash_offer"
	// LineFreeDelivery is a delivery line whose cost has been waived by a free-delivery grant.
	LineFreeDelivery LineKind = "free_delivery"
)

// DeliveryLineID is the reserved identifier of the synthetic delivery line.
const DeliveryLineID = "delivery_service"

// FlashLineSuffix is appended to a product id to form its flash offer line id.
const FlashLineSuffix = "_flash"

// ProductAttributes carries the catalog flags historically embedded as letter
// markers in raw product ids. They are parsed once at ingestion; nothing
// downstream inspects id strings.
type ProductAttributes struct {
	IsSet           bool
	IsFlashEligible bool
	IsSpicy         bool
	IsChefPick      bool
	IsRecommended   bool
}

// Product is a catalog record as served to the storefront and the cart engine.
type Product struct {
	ID          string
	Name        string
	Description string
	Price       int64
	Category    string
	Attributes  ProductAttributes
}

// CartLine is a single line in the cart. Synthetic lines (delivery, flash)
// are derived by the engine and pinned to quantity one.
type CartLine struct {
	ID                string
	ProductID         string
	Name              string
	UnitPrice         int64
	OriginalPrice     *int64
	Quantity          int
	Kind              LineKind
	IsSet             bool
	ViolatesCondition bool
	AddedAt           time.Time
}

// Total returns the line's contribution to the cart sum.
func (l CartLine) Total() int64 {
	return l.UnitPrice * int64(l.Quantity)
}

// IsDelivery reports whether the line is the delivery line, paid or granted.
func (l CartLine) IsDelivery() bool {
	return l.Kind == LineDelivery || l.Kind == LineFreeDelivery
}

// PromotionTier maps a minimum qualifying subtotal to a percentage discount.
// Tiers arrive unordered; exactly one tier applies, never stacked.
type PromotionTier struct {
	MinTotal        int64
	DiscountPercent int64
}

// DeliveryZone is the externally resolved cost/free-threshold tuple for an
// address. The engine treats it as an opaque snapshot that may change between
// recomputations.
type DeliveryZone struct {
	Label    string
	Cost     int64
	FreeFrom int64
}

// RuleSnapshot bundles the promotion inputs the collaborator layer hands to
// the engine on every call. The engine never fetches these itself.
type RuleSnapshot struct {
	Tiers          []PromotionTier
	Zone           DeliveryZone
	FlashThreshold int64
	FlashPercent   int64
}

// Cart is the session-scoped line collection plus its derived totals.
type Cart struct {
	SessionID string
	Lines     []CartLine
	ZoneLabel string
	Totals    *CartTotals
	UpdatedAt time.Time
}

// OrderRow is the flattened record appended to the orders worksheet when a
// cart passes the checkout gate.
type OrderRow struct {
	OrderNumber string
	SessionID   string
	ZoneLabel   string
	LineCount   int
	Subtotal    int64
	Discount    int64
	DeliveryFee int64
	GrandTotal  int64
	PlacedAt    time.Time
}
