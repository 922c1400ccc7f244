package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestListMyOrders(t *testing.T) {
	db := initTestDB(t)
	seedUser(t, db, "u1", "buyer@example.com")
	seedUser(t, db, "u2", "other@example.com")
	seedProduct(t, db, 1, "Drum Loops", 999)
	seedProduct(t, db, 2, "Synth Pack", 1999)
	seedOrder(t, db, "o1", "u1", 1, 999, "pi_1")
	seedOrder(t, db, "o2", "u1", 2, 1999, "pi_2")
	seedOrder(t, db, "o3", "u2", 1, 999, "pi_3")

	h := &OrdersHandler{DB: db}

	rec, c := newJSONContext(t, http.MethodGet, "/api/v1/orders", nil)
	asCustomer(c, "u1")

	require.NoError(t, h.ListMyOrders(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var views []orderView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &views))
	require.Len(t, views, 2)
	for _, v := range views {
		require.NotEqual(t, "o3", v.ID)
		require.NotEmpty(t, v.ProductName)
		require.NotEmpty(t, v.ProductImage)
	}
}

func TestListMyOrdersEmpty(t *testing.T) {
	db := initTestDB(t)
	seedUser(t, db, "u1", "buyer@example.com")

	h := &OrdersHandler{DB: db}

	rec, c := newJSONContext(t, http.MethodGet, "/api/v1/orders", nil)
	asCustomer(c, "u1")

	require.NoError(t, h.ListMyOrders(c))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, "[]", rec.Body.String())
}

func TestListMyOrdersAnonymous(t *testing.T) {
	db := initTestDB(t)
	h := &OrdersHandler{DB: db}

	_, c := newJSONContext(t, http.MethodGet, "/api/v1/orders", nil)
	requireHTTPError(t, h.ListMyOrders(c), http.StatusUnauthorized)
}
