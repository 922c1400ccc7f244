package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/mkravets/digital-store/internal/cache"
	"github.com/mkravets/digital-store/internal/models"
	"github.com/mkravets/digital-store/internal/util"
)

type ProductHandler struct {
	DB    *gorm.DB
	Cache *cache.Cache
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

// GetProducts lists products with the storefront filters: name search,
// price range (whole currency units in the query, cents in the DB),
// availability and sort order.
func (h *ProductHandler) GetProducts(c echo.Context) error {
	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	q := h.DB.Model(&models.Product{})

	if search := c.QueryParam("search"); search != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}
	if min := c.QueryParam("minPrice"); min != "" {
		if v, err := strconv.Atoi(min); err == nil {
			q = q.Where("price_in_cents >= ?", v*100)
		}
	}
	if max := c.QueryParam("maxPrice"); max != "" {
		if v, err := strconv.Atoi(max); err == nil {
			q = q.Where("price_in_cents <= ?", v*100)
		}
	}
	switch c.QueryParam("availability") {
	case "available":
		q = q.Where("is_available = ?", true)
	case "unavailable":
		q = q.Where("is_available = ?", false)
	}

	switch c.QueryParam("sort") {
	case "oldest":
		q = q.Order("created_at ASC")
	case "price-low":
		q = q.Order("price_in_cents ASC")
	case "price-high":
		q = q.Order("price_in_cents DESC")
	case "name-az":
		q = q.Order("name ASC")
	case "name-za":
		q = q.Order("name DESC")
	default:
		q = q.Order("created_at DESC")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	var items []models.Product
	if err := q.Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": items,
		"meta": map[string]any{
			"page":        page,
			"size":        limit,
			"total":       total,
			"total_pages": (total + int64(limit) - 1) / int64(limit),
			"has_prev":    page > 1,
			"has_next":    int64(offset+limit) < total,
		},
	})
}

func (h *ProductHandler) GetProduct(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	var product models.Product
	if err := h.DB.First(&product, id).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "product not found")
	}

	return c.JSON(http.StatusOK, product)
}

type topSellingProduct struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	PriceInCents int       `json:"price_in_cents"`
	ImagePath    string    `json:"image_path"`
	IsAvailable  bool      `json:"is_available"`
	SalesCount   int64     `json:"sales_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// GetTopSelling returns the three available products with the most sales,
// cached until an order is fulfilled or the catalog changes.
func (h *ProductHandler) GetTopSelling(c echo.Context) error {
	ctx := c.Request().Context()

	var rows []topSellingProduct
	if h.Cache.Get(ctx, cache.TagTopSelling, &rows) {
		return c.JSON(http.StatusOK, rows)
	}

	if err := h.DB.Table("products").
		Select("products.id, products.name, products.description, products.price_in_cents, products.image_path, products.is_available, COUNT(orders.id) AS sales_count, products.created_at").
		Joins("LEFT JOIN orders ON orders.product_id = products.id").
		Where("products.is_available = ?", true).
		Group("products.id, products.name, products.description, products.price_in_cents, products.image_path, products.is_available, products.created_at").
		Order("sales_count DESC").
		Limit(3).
		Scan(&rows).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	if rows == nil {
		rows = []topSellingProduct{}
	}

	h.Cache.Set(ctx, cache.TagTopSelling, rows, time.Hour)
	return c.JSON(http.StatusOK, rows)
}

type storeStats struct {
	PriceRange struct {
		Min int `json:"min"`
		Max int `json:"max"`
	} `json:"price_range"`
	Counts struct {
		Total       int64 `json:"total"`
		Available   int64 `json:"available"`
		Unavailable int64 `json:"unavailable"`
	} `json:"counts"`
}

// GetStoreStats returns the price range and availability counts used by the
// storefront filter panel, cached under the store-stats tag.
func (h *ProductHandler) GetStoreStats(c echo.Context) error {
	ctx := c.Request().Context()

	var stats storeStats
	if h.Cache.Get(ctx, cache.TagStoreStats, &stats) {
		return c.JSON(http.StatusOK, stats)
	}

	var bounds struct {
		Min *int
		Max *int
	}
	if err := h.DB.Model(&models.Product{}).
		Select("MIN(price_in_cents) AS min, MAX(price_in_cents) AS max").
		Scan(&bounds).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	if bounds.Min != nil {
		stats.PriceRange.Min = *bounds.Min / 100
	}
	if bounds.Max != nil {
		stats.PriceRange.Max = (*bounds.Max + 99) / 100
	}

	if err := h.DB.Model(&models.Product{}).Count(&stats.Counts.Total).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	if err := h.DB.Model(&models.Product{}).Where("is_available = ?", true).
		Count(&stats.Counts.Available).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	stats.Counts.Unavailable = stats.Counts.Total - stats.Counts.Available

	h.Cache.Set(ctx, cache.TagStoreStats, stats, time.Hour)
	return c.JSON(http.StatusOK, stats)
}
