package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartEndpoints(t *testing.T) {
	t.Run("get returns an empty cart with a session cookie", func(t *testing.T) {
		env := newTestEnv(t)

		resp := env.do(t, http.MethodGet, "/api/v1/cart", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)

		payload := decodeBody(t, resp)
		cart := payload["cart"].(map[string]any)
		assert.Empty(t, cart["lines"])
		assert.Equal(t, "standard", cart["zone"])
	})

	t.Run("add item synthesises delivery and totals", func(t *testing.T) {
		env := newTestEnv(t)

		resp := env.do(t, http.MethodPost, "/api/v1/cart/items", `{"product_id":"7","quantity":1}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		payload := decodeBody(t, resp)
		cart := payload["cart"].(map[string]any)
		lines := cart["lines"].([]any)
		require.Len(t, lines, 2)

		totals := cart["totals"].(map[string]any)
		assert.EqualValues(t, 650, totals["grand_total"])
		assert.EqualValues(t, 350, totals["delivery_cost"])
	})

	t.Run("cart persists across requests in the same session", func(t *testing.T) {
		env := newTestEnv(t)

		resp := env.do(t, http.MethodPost, "/api/v1/cart/items", `{"product_id":"7","quantity":1}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()

		resp = env.do(t, http.MethodGet, "/api/v1/cart", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		cart := decodeBody(t, resp)["cart"].(map[string]any)
		require.Len(t, cart["lines"].([]any), 2)
	})

	t.Run("unknown product returns 404", func(t *testing.T) {
		env := newTestEnv(t)

		resp := env.do(t, http.MethodPost, "/api/v1/cart/items", `{"product_id":"missing"}`)
		require.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "product_not_found", decodeBody(t, resp)["error"])
	})

	t.Run("malformed body returns 400", func(t *testing.T) {
		env := newTestEnv(t)

		resp := env.do(t, http.MethodPost, "/api/v1/cart/items", `{"product_id`)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		resp.Body.Close()
	})

	t.Run("update quantity and remove line", func(t *testing.T) {
		env := newTestEnv(t)

		resp := env.do(t, http.MethodPost, "/api/v1/cart/items", `{"product_id":"7","quantity":1}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()

		resp = env.do(t, http.MethodPatch, "/api/v1/cart/items/7", `{"quantity":3}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		cart := decodeBody(t, resp)["cart"].(map[string]any)
		totals := cart["totals"].(map[string]any)
		assert.EqualValues(t, 300*3+350, totals["grand_total"])

		resp = env.do(t, http.MethodDelete, "/api/v1/cart/items/7", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		cart = decodeBody(t, resp)["cart"].(map[string]any)
		assert.Empty(t, cart["lines"])
	})

	t.Run("flash offer lifecycle", func(t *testing.T) {
		env := newTestEnv(t)

		resp := env.do(t, http.MethodPost, "/api/v1/cart/items", `{"product_id":"8","quantity":1}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()

		resp = env.do(t, http.MethodPost, "/api/v1/cart/flash-offers", `{"product_id":"9R2000"}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		cart := decodeBody(t, resp)["cart"].(map[string]any)
		require.Len(t, cart["lines"].([]any), 3)

		// A second offer for the same product conflicts.
		resp = env.do(t, http.MethodPost, "/api/v1/cart/flash-offers", `{"product_id":"9R2000"}`)
		require.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.Equal(t, "flash_offer_rejected", decodeBody(t, resp)["error"])
	})

	t.Run("free delivery endpoint", func(t *testing.T) {
		env := newTestEnv(t)

		resp := env.do(t, http.MethodPost, "/api/v1/cart/items", `{"product_id":"8","quantity":2}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()

		resp = env.do(t, http.MethodPost, "/api/v1/cart/free-delivery", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		cart := decodeBody(t, resp)["cart"].(map[string]any)
		totals := cart["totals"].(map[string]any)
		assert.EqualValues(t, 0, totals["delivery_cost"])
	})

	t.Run("free delivery below threshold conflicts", func(t *testing.T) {
		env := newTestEnv(t)

		resp := env.do(t, http.MethodPost, "/api/v1/cart/items", `{"product_id":"7","quantity":1}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()

		resp = env.do(t, http.MethodPost, "/api/v1/cart/free-delivery", "")
		require.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.Equal(t, "free_delivery_rejected", decodeBody(t, resp)["error"])
	})

	t.Run("set zone reprices delivery", func(t *testing.T) {
		env := newTestEnv(t)

		resp := env.do(t, http.MethodPost, "/api/v1/cart/items", `{"product_id":"7","quantity":1}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()

		resp = env.do(t, http.MethodPut, "/api/v1/cart/zone", `{"zone":"remote"}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		cart := decodeBody(t, resp)["cart"].(map[string]any)
		assert.Equal(t, "remote", cart["zone"])
		totals := cart["totals"].(map[string]any)
		assert.EqualValues(t, 800, totals["delivery_cost"])
	})

	t.Run("unknown zone returns 400", func(t *testing.T) {
		env := newTestEnv(t)

		resp := env.do(t, http.MethodPut, "/api/v1/cart/zone", `{"zone":"mars"}`)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "zone_unknown", decodeBody(t, resp)["error"])
	})

	t.Run("clear cart", func(t *testing.T) {
		env := newTestEnv(t)

		resp := env.do(t, http.MethodPost, "/api/v1/cart/items", `{"product_id":"7","quantity":1}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()

		resp = env.do(t, http.MethodDelete, "/api/v1/cart", "")
		require.Equal(t, http.StatusNoContent, resp.StatusCode)
		resp.Body.Close()

		resp = env.do(t, http.MethodGet, "/api/v1/cart", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		cart := decodeBody(t, resp)["cart"].(map[string]any)
		assert.Empty(t, cart["lines"])
	})
}
