package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	domain "github.com/marugo-kitchen/api/internal/domain"
	"github.com/marugo-kitchen/api/internal/platform/httpx"
	"github.com/marugo-kitchen/api/internal/services"
)

type productAttributesPayload struct {
	IsSet           bool `json:"is_set"`
	IsFlashEligible bool `json:"is_flash_eligible"`
	IsSpicy         bool `json:"is_spicy"`
	IsChefPick      bool `json:"is_chef_pick"`
	IsRecommended   bool `json:"is_recommended"`
}

type productPayload struct {
	ID          string                   `json:"id"`
	Name        string                   `json:"name"`
	Description string                   `json:"description,omitempty"`
	Price       int64                    `json:"price"`
	Category    string                   `json:"category,omitempty"`
	Attributes  productAttributesPayload `json:"attributes"`
}

type cartLinePayload struct {
	ID                string `json:"id"`
	ProductID         string `json:"product_id,omitempty"`
	Name              string `json:"name"`
	UnitPrice         int64  `json:"unit_price"`
	OriginalPrice     *int64 `json:"original_price,omitempty"`
	Quantity          int    `json:"quantity"`
	Kind              string `json:"kind"`
	IsSet             bool   `json:"is_set,omitempty"`
	ViolatesCondition bool   `json:"violates_condition,omitempty"`
	Total             int64  `json:"total"`
}

type cartTotalsPayload struct {
	RegularSubtotal int64  `json:"regular_subtotal"`
	DiscountPercent int64  `json:"discount_percent"`
	DiscountAmount  int64  `json:"discount_amount"`
	DeliveryCost    int64  `json:"delivery_cost"`
	GrandTotal      int64  `json:"grand_total"`
	TierMinTotal    *int64 `json:"tier_min_total,omitempty"`
}

type cartPayload struct {
	Lines     []cartLinePayload  `json:"lines"`
	ZoneLabel string             `json:"zone"`
	Totals    *cartTotalsPayload `json:"totals,omitempty"`
	UpdatedAt string             `json:"updated_at"`
}

type cartResponse struct {
	Cart cartPayload `json:"cart"`
}

func buildProductPayload(product domain.Product) productPayload {
	return productPayload{
		ID:          product.ID,
		Name:        product.Name,
		Description: product.Description,
		Price:       product.Price,
		Category:    product.Category,
		Attributes: productAttributesPayload{
			IsSet:           product.Attributes.IsSet,
			IsFlashEligible: product.Attributes.IsFlashEligible,
			IsSpicy:         product.Attributes.IsSpicy,
			IsChefPick:      product.Attributes.IsChefPick,
			IsRecommended:   product.Attributes.IsRecommended,
		},
	}
}

func buildCartPayload(cart domain.Cart) cartPayload {
	lines := make([]cartLinePayload, 0, len(cart.Lines))
	for _, line := range cart.Lines {
		lines = append(lines, cartLinePayload{
			ID:                line.ID,
			ProductID:         line.ProductID,
			Name:              line.Name,
			UnitPrice:         line.UnitPrice,
			OriginalPrice:     line.OriginalPrice,
			Quantity:          line.Quantity,
			Kind:              string(line.Kind),
			IsSet:             line.IsSet,
			ViolatesCondition: line.ViolatesCondition,
			Total:             line.Total(),
		})
	}

	payload := cartPayload{
		Lines:     lines,
		ZoneLabel: cart.ZoneLabel,
		UpdatedAt: cart.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if cart.Totals != nil {
		payload.Totals = &cartTotalsPayload{
			RegularSubtotal: cart.Totals.RegularSubtotal,
			DiscountPercent: cart.Totals.DiscountPercent,
			DiscountAmount:  cart.Totals.DiscountAmount,
			DeliveryCost:    cart.Totals.DeliveryCost,
			GrandTotal:      cart.Totals.GrandTotal,
			TierMinTotal:    cart.Totals.TierMinTotal,
		}
	}
	return payload
}

// writeServiceError maps service failures to the JSON error envelope.
func writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrCartInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCatalogProductNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("product_not_found", err.Error(), http.StatusNotFound))
	case errors.Is(err, services.ErrPromotionZoneUnknown):
		httpx.WriteError(ctx, w, httpx.NewError("zone_unknown", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCartFlashRejected):
		httpx.WriteError(ctx, w, httpx.NewError("flash_offer_rejected", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrCartFreeDeliveryRejected):
		httpx.WriteError(ctx, w, httpx.NewError("free_delivery_rejected", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrCheckoutFlashUnfunded):
		httpx.WriteError(ctx, w, httpx.NewError("flash_items_unfunded", "flash offer funding condition is not met", http.StatusConflict))
	case errors.Is(err, services.ErrCheckoutEmptyCart):
		httpx.WriteError(ctx, w, httpx.NewError("empty_cart", "cart has nothing orderable", http.StatusConflict))
	case errors.Is(err, services.ErrCatalogUnavailable),
		errors.Is(err, services.ErrPromotionUnavailable),
		errors.Is(err, services.ErrCheckoutUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("backend_unavailable", "backend is temporarily unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_server_error", "internal server error", http.StatusInternalServerError))
	}
}
