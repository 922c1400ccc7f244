package httpserver

import (
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/mkravets/digital-store/internal/handlers"
	authhdl "github.com/mkravets/digital-store/internal/handlers/auth"
	authmw "github.com/mkravets/digital-store/internal/middleware/auth"
)

type Deps struct {
	DB              *gorm.DB
	Tokens          *authmw.TokenService
	AuthHandler     *authhdl.AuthHandler
	ProductHandler  *handlers.ProductHandler
	SearchHandler   *handlers.SearchHandler
	CheckoutHandler *handlers.CheckoutHandler
	WebhookHandler  *handlers.WebhookHandler
	DownloadHandler *handlers.DownloadHandler
	OrdersHandler   *handlers.OrdersHandler
	AdminHandler    *handlers.AdminHandler
	AdminReports    *handlers.AdminReportsHandler
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	v1 := e.Group("/api/v1")

	v1.POST("/register", d.AuthHandler.Register)
	v1.POST("/login", d.AuthHandler.Login)
	v1.POST("/logout", d.AuthHandler.Logout)

	products := v1.Group("/products")
	products.GET("", d.ProductHandler.GetProducts)
	products.GET("/stats", d.ProductHandler.GetStoreStats)
	products.GET("/top-selling", d.ProductHandler.GetTopSelling)
	products.GET("/:id", d.ProductHandler.GetProduct)

	v1.GET("/search", d.SearchHandler.Search)

	v1.POST("/webhooks/stripe", d.WebhookHandler.HandleStripe)
	v1.GET("/download/:id", d.DownloadHandler.ResolveDownload)

	authed := v1.Group("", d.Tokens.RequireLogin)
	authed.POST("/checkout/:id", d.CheckoutHandler.CreateSession)
	authed.GET("/orders", d.OrdersHandler.ListMyOrders)
	authed.POST("/orders/:id/download", d.DownloadHandler.RequestDownload)

	admin := v1.Group("/admin", d.Tokens.RequireAdmin)
	admin.POST("/products", d.AdminHandler.CreateProduct)
	admin.PATCH("/products/:id/availability", d.AdminHandler.ToggleAvailability)
	admin.DELETE("/products/:id", d.AdminHandler.DeleteProduct)
	admin.POST("/uploads", d.AdminHandler.CreateUploadURL)
	admin.GET("/dashboard", d.AdminReports.Dashboard)
	admin.GET("/orders", d.AdminReports.Orders)
	admin.GET("/products", d.AdminReports.Products)
	admin.GET("/users", d.AdminReports.Users)
}
