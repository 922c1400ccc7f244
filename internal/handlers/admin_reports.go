package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/mkravets/digital-store/internal/cache"
	"github.com/mkravets/digital-store/internal/models"
)

const reportTTL = 5 * time.Minute

type AdminReportsHandler struct {
	DB    *gorm.DB
	Cache *cache.Cache
}

type dashboardReport struct {
	TotalRevenue   int64 `json:"total_revenue"`
	TotalOrders    int64 `json:"total_orders"`
	TotalProducts  int64 `json:"total_products"`
	TotalCustomers int64 `json:"total_customers"`
	RecentOrders   []struct {
		OrderID     string    `json:"order_id"`
		PricePaid   int       `json:"price_paid"`
		ProductName string    `json:"product_name"`
		UserEmail   string    `json:"user_email"`
		CreatedAt   time.Time `json:"created_at"`
	} `json:"recent_orders"`
}

func (h *AdminReportsHandler) Dashboard(c echo.Context) error {
	ctx := c.Request().Context()

	var report dashboardReport
	if h.Cache.Get(ctx, cache.TagAdminDashboard, &report) {
		return c.JSON(http.StatusOK, report)
	}

	var revenue *int64
	if err := h.DB.Model(&models.Order{}).
		Select("SUM(price_paid_in_cents)").Scan(&revenue).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	if revenue != nil {
		report.TotalRevenue = *revenue
	}
	if err := h.DB.Model(&models.Order{}).Count(&report.TotalOrders).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	if err := h.DB.Model(&models.Product{}).Count(&report.TotalProducts).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	if err := h.DB.Model(&models.Order{}).
		Distinct("user_id").Count(&report.TotalCustomers).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	if err := h.DB.Table("orders").
		Select("orders.id AS order_id, orders.price_paid_in_cents AS price_paid, products.name AS product_name, users.email AS user_email, orders.created_at").
		Joins("JOIN products ON products.id = orders.product_id").
		Joins("JOIN users ON users.id = orders.user_id").
		Order("orders.created_at DESC").
		Limit(10).
		Scan(&report.RecentOrders).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	h.Cache.Set(ctx, cache.TagAdminDashboard, report, reportTTL)
	return c.JSON(http.StatusOK, report)
}

type adminOrderRow struct {
	OrderID               string    `json:"order_id"`
	PricePaid             int       `json:"price_paid"`
	StripePaymentIntentID string    `json:"stripe_payment_intent_id"`
	ProductID             int       `json:"product_id"`
	ProductName           string    `json:"product_name"`
	UserID                string    `json:"user_id"`
	UserEmail             string    `json:"user_email"`
	UserName              string    `json:"user_name"`
	CreatedAt             time.Time `json:"created_at"`
}

type ordersReport struct {
	TotalRevenue     int64           `json:"total_revenue"`
	TotalOrders      int64           `json:"total_orders"`
	AvgOrderValue    int64           `json:"avg_order_value"`
	Orders           []adminOrderRow `json:"orders"`
	RevenueByProduct []struct {
		ProductID    int    `json:"product_id"`
		ProductName  string `json:"product_name"`
		SalesCount   int64  `json:"sales_count"`
		TotalRevenue int64  `json:"total_revenue"`
	} `json:"revenue_by_product"`
}

func (h *AdminReportsHandler) Orders(c echo.Context) error {
	ctx := c.Request().Context()

	var report ordersReport
	if h.Cache.Get(ctx, cache.TagAdminOrders, &report) {
		return c.JSON(http.StatusOK, report)
	}

	var revenue *int64
	if err := h.DB.Model(&models.Order{}).
		Select("SUM(price_paid_in_cents)").Scan(&revenue).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	if revenue != nil {
		report.TotalRevenue = *revenue
	}
	if err := h.DB.Model(&models.Order{}).Count(&report.TotalOrders).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	if report.TotalOrders > 0 {
		report.AvgOrderValue = report.TotalRevenue / report.TotalOrders
	}

	if err := h.DB.Table("orders").
		Select("orders.id AS order_id, orders.price_paid_in_cents AS price_paid, orders.stripe_payment_intent_id, products.id AS product_id, products.name AS product_name, users.id AS user_id, users.email AS user_email, users.name AS user_name, orders.created_at").
		Joins("JOIN products ON products.id = orders.product_id").
		Joins("JOIN users ON users.id = orders.user_id").
		Order("orders.created_at DESC").
		Scan(&report.Orders).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	if err := h.DB.Table("products").
		Select("products.id AS product_id, products.name AS product_name, COUNT(orders.id) AS sales_count, SUM(orders.price_paid_in_cents) AS total_revenue").
		Joins("JOIN orders ON orders.product_id = products.id").
		Group("products.id, products.name").
		Order("total_revenue DESC").
		Scan(&report.RevenueByProduct).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	h.Cache.Set(ctx, cache.TagAdminOrders, report, reportTTL)
	return c.JSON(http.StatusOK, report)
}

type adminProductRow struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	PriceInCents int       `json:"price_in_cents"`
	IsAvailable  bool      `json:"is_available"`
	OrdersCount  int64     `json:"orders_count"`
	CreatedAt    time.Time `json:"created_at"`
}

func (h *AdminReportsHandler) Products(c echo.Context) error {
	ctx := c.Request().Context()

	var rows []adminProductRow
	if h.Cache.Get(ctx, cache.TagAdminProducts, &rows) {
		return c.JSON(http.StatusOK, rows)
	}

	if err := h.DB.Table("products").
		Select("products.id, products.name, products.price_in_cents, products.is_available, COUNT(orders.id) AS orders_count, products.created_at").
		Joins("LEFT JOIN orders ON orders.product_id = products.id").
		Group("products.id, products.name, products.price_in_cents, products.is_available, products.created_at").
		Order("products.created_at DESC").
		Scan(&rows).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	if rows == nil {
		rows = []adminProductRow{}
	}

	h.Cache.Set(ctx, cache.TagAdminProducts, rows, reportTTL)
	return c.JSON(http.StatusOK, rows)
}

type usersReport struct {
	TotalUsers     int64 `json:"total_users"`
	TotalCustomers int64 `json:"total_customers"`
	Customers      []struct {
		UserID      string    `json:"user_id"`
		UserName    string    `json:"user_name"`
		UserEmail   string    `json:"user_email"`
		UserRole    string    `json:"user_role"`
		TotalOrders int64     `json:"total_orders"`
		TotalSpent  int64     `json:"total_spent"`
		CreatedAt   time.Time `json:"created_at"`
	} `json:"customers"`
}

func (h *AdminReportsHandler) Users(c echo.Context) error {
	ctx := c.Request().Context()

	var report usersReport
	if h.Cache.Get(ctx, cache.TagAdminUsers, &report) {
		return c.JSON(http.StatusOK, report)
	}

	if err := h.DB.Model(&models.User{}).Count(&report.TotalUsers).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	if err := h.DB.Model(&models.Order{}).
		Distinct("user_id").Count(&report.TotalCustomers).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	if err := h.DB.Table("users").
		Select("users.id AS user_id, users.name AS user_name, users.email AS user_email, users.role AS user_role, COUNT(orders.id) AS total_orders, COALESCE(SUM(orders.price_paid_in_cents), 0) AS total_spent, users.created_at").
		Joins("LEFT JOIN orders ON orders.user_id = users.id").
		Group("users.id, users.name, users.email, users.role, users.created_at").
		Order("total_spent DESC").
		Scan(&report.Customers).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	h.Cache.Set(ctx, cache.TagAdminUsers, report, reportTTL)
	return c.JSON(http.StatusOK, report)
}
