package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/marugo-kitchen/api/internal/platform/httpx"
	"github.com/marugo-kitchen/api/internal/platform/requestctx"
	"github.com/marugo-kitchen/api/internal/services"
)

// CheckoutHandlers exposes the checkout gate and order submission endpoints.
type CheckoutHandlers struct {
	checkout services.CheckoutService
}

// NewCheckoutHandlers constructs handlers backed by the checkout service.
func NewCheckoutHandlers(checkout services.CheckoutService) *CheckoutHandlers {
	return &CheckoutHandlers{checkout: checkout}
}

// Routes wires the /checkout endpoints onto the provided router.
func (h *CheckoutHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/validate", h.validate)
	r.Post("/", h.submit)
}

func (h *CheckoutHandlers) validate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := h.session(w, r)
	if !ok {
		return
	}

	if err := h.checkout.ValidateCart(ctx, sessionID); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"can_place_order": true})
}

func (h *CheckoutHandlers) submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := h.session(w, r)
	if !ok {
		return
	}

	row, err := h.checkout.SubmitOrder(ctx, sessionID)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, map[string]any{
		"order": map[string]any{
			"order_number": row.OrderNumber,
			"zone":         row.ZoneLabel,
			"line_count":   row.LineCount,
			"subtotal":     row.Subtotal,
			"discount":     row.Discount,
			"delivery_fee": row.DeliveryFee,
			"grand_total":  row.GrandTotal,
			"placed_at":    row.PlacedAt.UTC().Format(time.RFC3339),
		},
	})
}

func (h *CheckoutHandlers) session(w http.ResponseWriter, r *http.Request) (string, bool) {
	ctx := r.Context()
	if h.checkout == nil {
		httpx.WriteError(ctx, w, httpx.NewError("checkout_service_unavailable", "checkout service is unavailable", http.StatusServiceUnavailable))
		return "", false
	}
	sessionID := strings.TrimSpace(requestctx.SessionID(ctx))
	if sessionID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("internal_server_error", "session is not initialised", http.StatusInternalServerError))
		return "", false
	}
	return sessionID, true
}
