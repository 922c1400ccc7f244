package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/mkravets/digital-store/internal/cache"
	authmw "github.com/mkravets/digital-store/internal/middleware/auth"
)

type OrdersHandler struct {
	DB    *gorm.DB
	Cache *cache.Cache
}

type orderView struct {
	ID               string    `json:"id"`
	ProductID        int       `json:"product_id"`
	ProductName      string    `json:"product_name"`
	ProductImage     string    `json:"product_image"`
	PricePaidInCents int       `json:"price_paid_in_cents"`
	CreatedAt        time.Time `json:"created_at"`
}

// ListMyOrders returns the caller's purchases joined with product data,
// newest first, cached per user and invalidated on fulfillment.
func (h *OrdersHandler) ListMyOrders(c echo.Context) error {
	ctx := c.Request().Context()

	id, ok := authmw.CurrentUser(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "login required")
	}

	tag := cache.UserOrdersTag(id.UserID)

	var views []orderView
	if h.Cache.Get(ctx, tag, &views) {
		return c.JSON(http.StatusOK, views)
	}

	err := h.DB.Table("orders").
		Select("orders.id, orders.product_id, products.name AS product_name, products.image_path AS product_image, orders.price_paid_in_cents, orders.created_at").
		Joins("JOIN products ON products.id = orders.product_id").
		Where("orders.user_id = ?", id.UserID).
		Order("orders.created_at DESC").
		Scan(&views).Error
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	if views == nil {
		views = []orderView{}
	}

	h.Cache.Set(ctx, tag, views, 5*time.Minute)
	return c.JSON(http.StatusOK, views)
}
