package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/marugo-kitchen/api/internal/platform/httpx"
	"github.com/marugo-kitchen/api/internal/services"
)

// CatalogHandlers exposes the public product catalog and delivery zones.
type CatalogHandlers struct {
	catalog    services.CatalogService
	promotions services.PromotionService
}

// NewCatalogHandlers constructs handlers serving catalog reads.
func NewCatalogHandlers(catalog services.CatalogService, promotions services.PromotionService) *CatalogHandlers {
	return &CatalogHandlers{catalog: catalog, promotions: promotions}
}

// Routes wires the /catalog endpoints onto the provided router.
func (h *CatalogHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/products", h.listProducts)
	r.Get("/zones", h.listZones)
}

func (h *CatalogHandlers) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
		return
	}

	products, err := h.catalog.ListProducts(ctx)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	payload := make([]productPayload, 0, len(products))
	for _, product := range products {
		payload = append(payload, buildProductPayload(product))
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"products": payload})
}

func (h *CatalogHandlers) listZones(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.promotions == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "promotion service is unavailable", http.StatusServiceUnavailable))
		return
	}

	zones, err := h.promotions.ListZones(ctx)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	type zonePayload struct {
		Label    string `json:"label"`
		Cost     int64  `json:"cost"`
		FreeFrom int64  `json:"free_from"`
	}
	payload := make([]zonePayload, 0, len(zones))
	for _, zone := range zones {
		payload = append(payload, zonePayload{Label: zone.Label, Cost: zone.Cost, FreeFrom: zone.FreeFrom})
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"zones": payload})
}
