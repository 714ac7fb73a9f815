package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domain "github.com/marugo-kitchen/api/internal/domain"
	"github.com/marugo-kitchen/api/internal/platform/session"
	"github.com/marugo-kitchen/api/internal/services"
)

type fakeCatalogService struct {
	products map[string]domain.Product
	err      error
}

func (f *fakeCatalogService) ListProducts(ctx context.Context) ([]services.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]services.Product, 0, len(f.products))
	for _, product := range f.products {
		out = append(out, product)
	}
	return out, nil
}

func (f *fakeCatalogService) GetProduct(ctx context.Context, productID string) (services.Product, error) {
	if f.err != nil {
		return services.Product{}, f.err
	}
	product, ok := f.products[productID]
	if !ok {
		return services.Product{}, fmt.Errorf("%w: %s", services.ErrCatalogProductNotFound, productID)
	}
	return product, nil
}

type fakePromotionService struct {
	zones map[string]domain.DeliveryZone
}

func (f *fakePromotionService) Snapshot(ctx context.Context, zoneLabel string) (services.RuleSnapshot, error) {
	label := zoneLabel
	if label == "" {
		label = "standard"
	}
	zone, ok := f.zones[label]
	if !ok {
		return services.RuleSnapshot{}, fmt.Errorf("%w: %s", services.ErrPromotionZoneUnknown, label)
	}
	return services.RuleSnapshot{
		Tiers:          []domain.PromotionTier{{MinTotal: 2000, DiscountPercent: 10}},
		Zone:           zone,
		FlashThreshold: 2000,
		FlashPercent:   1,
	}, nil
}

func (f *fakePromotionService) ListZones(ctx context.Context) ([]services.DeliveryZone, error) {
	out := make([]services.DeliveryZone, 0, len(f.zones))
	for _, zone := range f.zones {
		out = append(out, zone)
	}
	return out, nil
}

type fakeOrderRepository struct {
	mu   sync.Mutex
	rows []domain.OrderRow
	err  error
}

func (f *fakeOrderRepository) AppendOrder(ctx context.Context, row domain.OrderRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.rows = append(f.rows, row)
	return nil
}

type testEnv struct {
	server *httptest.Server
	client *http.Client
	orders *fakeOrderRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	catalog := &fakeCatalogService{products: map[string]domain.Product{
		"7":      {ID: "7", Name: "Bento", Price: 300},
		"8":      {ID: "8", Name: "Soup Set", Price: 2500},
		"9R2000": {ID: "9R2000", Name: "Flash Roll", Price: 1200, Attributes: domain.ProductAttributes{IsFlashEligible: true}},
	}}
	promotions := &fakePromotionService{zones: map[string]domain.DeliveryZone{
		"standard": {Label: "standard", Cost: 350, FreeFrom: 4000},
		"remote":   {Label: "remote", Cost: 800, FreeFrom: 6000},
	}}

	clock := func() time.Time { return time.Date(2026, time.March, 14, 12, 0, 0, 0, time.UTC) }

	carts, err := services.NewCartService(services.CartServiceDeps{
		Catalog:    catalog,
		Promotions: promotions,
		Clock:      clock,
	})
	require.NoError(t, err)

	orders := &fakeOrderRepository{}
	checkout, err := services.NewCheckoutService(services.CheckoutServiceDeps{
		Carts:  carts,
		Orders: orders,
		Clock:  clock,
	})
	require.NoError(t, err)

	cartHandlers := NewCartHandlers(carts)
	checkoutHandlers := NewCheckoutHandlers(checkout)
	catalogHandlers := NewCatalogHandlers(catalog, promotions)

	router := NewRouter(
		WithMiddlewares(session.Middleware(session.Config{TTL: time.Hour})),
		WithCatalogRoutes(catalogHandlers.Routes),
		WithCartRoutes(cartHandlers.Routes),
		WithCheckoutRoutes(checkoutHandlers.Routes),
	)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	jar := newCookieJar(t)
	return &testEnv{
		server: server,
		client: &http.Client{Jar: jar},
		orders: orders,
	}
}

func newCookieJar(t *testing.T) http.CookieJar {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return jar
}

func (e *testEnv) do(t *testing.T, method, path, body string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := e.client.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var payload map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	return payload
}
