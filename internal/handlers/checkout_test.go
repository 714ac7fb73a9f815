package handlers

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckoutEndpoints(t *testing.T) {
	t.Run("validate fails on an empty cart", func(t *testing.T) {
		env := newTestEnv(t)

		resp := env.do(t, http.MethodPost, "/api/v1/checkout/validate", "")
		require.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.Equal(t, "empty_cart", decodeBody(t, resp)["error"])
	})

	t.Run("validate passes on a funded cart", func(t *testing.T) {
		env := newTestEnv(t)

		resp := env.do(t, http.MethodPost, "/api/v1/cart/items", `{"product_id":"8","quantity":1}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()

		resp = env.do(t, http.MethodPost, "/api/v1/checkout/validate", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, true, decodeBody(t, resp)["can_place_order"])
	})

	t.Run("validate blocks unfunded flash offers", func(t *testing.T) {
		env := newTestEnv(t)

		resp := env.do(t, http.MethodPost, "/api/v1/cart/items", `{"product_id":"8","quantity":1}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()
		resp = env.do(t, http.MethodPost, "/api/v1/cart/flash-offers", `{"product_id":"9R2000"}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()
		resp = env.do(t, http.MethodDelete, "/api/v1/cart/items/8", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()

		resp = env.do(t, http.MethodPost, "/api/v1/checkout/validate", "")
		require.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.Equal(t, "flash_items_unfunded", decodeBody(t, resp)["error"])
	})

	t.Run("submit appends the order and empties the cart", func(t *testing.T) {
		env := newTestEnv(t)

		resp := env.do(t, http.MethodPost, "/api/v1/cart/items", `{"product_id":"8","quantity":1}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()

		resp = env.do(t, http.MethodPost, "/api/v1/checkout/", "")
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		order := decodeBody(t, resp)["order"].(map[string]any)
		assert.NotEmpty(t, order["order_number"])
		assert.EqualValues(t, 2600, order["grand_total"])
		require.Len(t, env.orders.rows, 1)

		resp = env.do(t, http.MethodGet, "/api/v1/cart", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		cart := decodeBody(t, resp)["cart"].(map[string]any)
		assert.Empty(t, cart["lines"])
	})

	t.Run("backend failure keeps the cart and returns 503", func(t *testing.T) {
		env := newTestEnv(t)
		env.orders.err = errors.New("append failed")

		resp := env.do(t, http.MethodPost, "/api/v1/cart/items", `{"product_id":"8","quantity":1}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()

		resp = env.do(t, http.MethodPost, "/api/v1/checkout/", "")
		require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.Equal(t, "backend_unavailable", decodeBody(t, resp)["error"])

		resp = env.do(t, http.MethodGet, "/api/v1/cart", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		cart := decodeBody(t, resp)["cart"].(map[string]any)
		assert.Len(t, cart["lines"].([]any), 2)
	})
}
