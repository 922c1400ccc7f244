package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mkravets/digital-store/internal/models"
)

type productPage struct {
	Data []models.Product `json:"data"`
	Meta struct {
		Page       int   `json:"page"`
		Size       int   `json:"size"`
		Total      int64 `json:"total"`
		TotalPages int64 `json:"total_pages"`
		HasPrev    bool  `json:"has_prev"`
		HasNext    bool  `json:"has_next"`
	} `json:"meta"`
}

func listProducts(t *testing.T, h *ProductHandler, target string) productPage {
	t.Helper()
	rec, c := newJSONContext(t, http.MethodGet, target, nil)
	require.NoError(t, h.GetProducts(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var page productPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	return page
}

func names(page productPage) []string {
	out := make([]string, 0, len(page.Data))
	for _, p := range page.Data {
		out = append(out, p.Name)
	}
	return out
}

func TestGetProductsFilters(t *testing.T) {
	db := initTestDB(t)
	seedProduct(t, db, 1, "Drum Loops", 999)
	seedProduct(t, db, 2, "Synth Pack", 1999)
	seedProduct(t, db, 3, "Vocal Chops", 4999)
	require.NoError(t, db.Model(&models.Product{}).Where("id = ?", 3).
		Update("is_available", false).Error)

	h := &ProductHandler{DB: db}

	t.Run("name search is case-insensitive", func(t *testing.T) {
		page := listProducts(t, h, "/api/v1/products?search=synth")
		require.Equal(t, []string{"Synth Pack"}, names(page))
	})

	t.Run("price range in whole units", func(t *testing.T) {
		page := listProducts(t, h, "/api/v1/products?minPrice=10&maxPrice=40")
		require.Equal(t, []string{"Synth Pack"}, names(page))
	})

	t.Run("availability filter", func(t *testing.T) {
		page := listProducts(t, h, "/api/v1/products?availability=unavailable")
		require.Equal(t, []string{"Vocal Chops"}, names(page))

		page = listProducts(t, h, "/api/v1/products?availability=available")
		require.Equal(t, int64(2), page.Meta.Total)
	})
}

func TestGetProductsSort(t *testing.T) {
	db := initTestDB(t)
	seedProduct(t, db, 1, "Drum Loops", 999)
	seedProduct(t, db, 2, "Synth Pack", 1999)
	seedProduct(t, db, 3, "Vocal Chops", 4999)

	h := &ProductHandler{DB: db}

	cases := map[string][]string{
		"price-low":  {"Drum Loops", "Synth Pack", "Vocal Chops"},
		"price-high": {"Vocal Chops", "Synth Pack", "Drum Loops"},
		"name-az":    {"Drum Loops", "Synth Pack", "Vocal Chops"},
		"name-za":    {"Vocal Chops", "Synth Pack", "Drum Loops"},
	}
	for sort, want := range cases {
		t.Run(sort, func(t *testing.T) {
			page := listProducts(t, h, "/api/v1/products?sort="+sort)
			require.Equal(t, want, names(page))
		})
	}
}

func TestGetProductsPagination(t *testing.T) {
	db := initTestDB(t)
	for i := 1; i <= 5; i++ {
		seedProduct(t, db, i, "Pack", 1000*i)
	}

	h := &ProductHandler{DB: db}

	first := listProducts(t, h, "/api/v1/products?sort=price-low&page=1&size=2")
	require.Len(t, first.Data, 2)
	require.Equal(t, int64(5), first.Meta.Total)
	require.Equal(t, int64(3), first.Meta.TotalPages)
	require.False(t, first.Meta.HasPrev)
	require.True(t, first.Meta.HasNext)
	require.Equal(t, 1000, first.Data[0].PriceInCents)

	last := listProducts(t, h, "/api/v1/products?sort=price-low&page=3&size=2")
	require.Len(t, last.Data, 1)
	require.True(t, last.Meta.HasPrev)
	require.False(t, last.Meta.HasNext)
	require.Equal(t, 5000, last.Data[0].PriceInCents)
}

func TestGetProduct(t *testing.T) {
	db := initTestDB(t)
	seedProduct(t, db, 1, "Synth Pack", 1999)

	h := &ProductHandler{DB: db}

	rec, c := newJSONContext(t, http.MethodGet, "/api/v1/products/1", nil)
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, h.GetProduct(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var product models.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &product))
	require.Equal(t, "Synth Pack", product.Name)

	_, c = newJSONContext(t, http.MethodGet, "/api/v1/products/99", nil)
	c.SetParamNames("id")
	c.SetParamValues("99")
	requireHTTPError(t, h.GetProduct(c), http.StatusNotFound)
}

func TestGetTopSelling(t *testing.T) {
	db := initTestDB(t)
	seedUser(t, db, "u1", "buyer@example.com")
	seedProduct(t, db, 1, "Drum Loops", 999)
	seedProduct(t, db, 2, "Synth Pack", 1999)
	seedProduct(t, db, 3, "Vocal Chops", 4999)
	seedProduct(t, db, 4, "Retired Pack", 2999)
	require.NoError(t, db.Model(&models.Product{}).Where("id = ?", 4).
		Update("is_available", false).Error)

	seedOrder(t, db, "o1", "u1", 2, 1999, "pi_1")
	seedOrder(t, db, "o2", "u1", 2, 1999, "pi_2")
	seedOrder(t, db, "o3", "u1", 1, 999, "pi_3")
	seedOrder(t, db, "o4", "u1", 4, 2999, "pi_4")

	h := &ProductHandler{DB: db}

	rec, c := newJSONContext(t, http.MethodGet, "/api/v1/products/top-selling", nil)
	require.NoError(t, h.GetTopSelling(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var rows []topSellingProduct
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 3)
	require.Equal(t, "Synth Pack", rows[0].Name)
	require.Equal(t, int64(2), rows[0].SalesCount)
	require.Equal(t, "Drum Loops", rows[1].Name)
	require.Equal(t, int64(1), rows[1].SalesCount)
	require.Equal(t, "Vocal Chops", rows[2].Name)
	require.Equal(t, int64(0), rows[2].SalesCount)
	for _, row := range rows {
		require.NotEqual(t, "Retired Pack", row.Name)
	}
}

func TestGetTopSellingEmptyCatalog(t *testing.T) {
	db := initTestDB(t)
	h := &ProductHandler{DB: db}

	rec, c := newJSONContext(t, http.MethodGet, "/api/v1/products/top-selling", nil)
	require.NoError(t, h.GetTopSelling(c))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, "[]", rec.Body.String())
}

func TestGetStoreStats(t *testing.T) {
	db := initTestDB(t)
	seedProduct(t, db, 1, "Drum Loops", 950)
	seedProduct(t, db, 2, "Synth Pack", 1999)
	require.NoError(t, db.Model(&models.Product{}).Where("id = ?", 2).
		Update("is_available", false).Error)

	h := &ProductHandler{DB: db}

	rec, c := newJSONContext(t, http.MethodGet, "/api/v1/products/stats", nil)
	require.NoError(t, h.GetStoreStats(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var stats storeStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	require.Equal(t, 9, stats.PriceRange.Min)
	require.Equal(t, 20, stats.PriceRange.Max)
	require.Equal(t, int64(2), stats.Counts.Total)
	require.Equal(t, int64(1), stats.Counts.Available)
	require.Equal(t, int64(1), stats.Counts.Unavailable)
}
