package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/mkravets/digital-store/internal/cache"
	"github.com/mkravets/digital-store/internal/es"
	"github.com/mkravets/digital-store/internal/events"
	"github.com/mkravets/digital-store/internal/logging"
	"github.com/mkravets/digital-store/internal/models"
	"github.com/mkravets/digital-store/internal/service/search"
	"github.com/mkravets/digital-store/internal/storage"
)

const uploadURLTTL = 5 * time.Minute

type AdminHandler struct {
	DB       *gorm.DB
	Cache    *cache.Cache
	Producer *events.Producer
	Signer   storage.Signer
	ES       *elasticsearch.Client
}

func (h *AdminHandler) CreateProduct(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "admin_create_product")

	var req struct {
		Name         string `json:"name"`
		Description  string `json:"description"`
		PriceInCents int    `json:"price_in_cents"`
		FileKey      string `json:"file_key"`
		ImageKey     string `json:"image_key"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name required")
	}
	if req.PriceInCents < 1 {
		return echo.NewHTTPError(http.StatusBadRequest, "price must be at least 1 cent")
	}
	if req.FileKey == "" || req.ImageKey == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "file and image keys required")
	}

	product := models.Product{
		Name:         req.Name,
		Description:  req.Description,
		PriceInCents: req.PriceInCents,
		FilePath:     req.FileKey,
		ImagePath:    req.ImageKey,
		IsAvailable:  true,
	}
	if err := h.DB.Create(&product).Error; err != nil {
		l.Error("create_product_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	h.invalidateProductViews(c)
	h.indexProduct(c, &product)
	h.publish(c, product.ID, map[string]interface{}{
		"type":      "product_created",
		"productID": product.ID,
		"name":      product.Name,
	})

	return c.JSON(http.StatusCreated, product)
}

func (h *AdminHandler) ToggleAvailability(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	var req struct {
		IsAvailable bool `json:"is_available"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	var product models.Product
	if err := h.DB.First(&product, id).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "product not found")
	}

	product.IsAvailable = req.IsAvailable
	if err := h.DB.Save(&product).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	h.invalidateProductViews(c)
	h.indexProduct(c, &product)
	h.publish(c, product.ID, map[string]interface{}{
		"type":      "product_updated",
		"productID": product.ID,
		"available": product.IsAvailable,
	})

	return c.JSON(http.StatusOK, product)
}

// DeleteProduct refuses to remove a product that any order references; the
// foreign key on orders.product_id is RESTRICT and this check fronts it with
// a descriptive error.
func (h *AdminHandler) DeleteProduct(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	var product models.Product
	if err := h.DB.First(&product, id).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "product not found")
	}

	var refs int64
	if err := h.DB.Model(&models.Order{}).Where("product_id = ?", id).Count(&refs).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	if refs > 0 {
		return echo.NewHTTPError(http.StatusConflict,
			"cannot delete product with existing orders; mark it unavailable instead")
	}

	if err := h.DB.Delete(&models.Product{}, id).Error; err != nil {
		return echo.NewHTTPError(http.StatusConflict,
			"cannot delete product with existing orders; mark it unavailable instead")
	}

	h.invalidateProductViews(c)
	h.deindexProduct(c, id)
	h.publish(c, id, map[string]interface{}{
		"type":      "product_deleted",
		"productID": id,
	})

	return c.NoContent(http.StatusNoContent)
}

// CreateUploadURL hands an admin a short-lived direct-to-storage upload URL.
// The object key is returned so the product form can reference it later.
func (h *AdminHandler) CreateUploadURL(c echo.Context) error {
	var req struct {
		FileName string `json:"fileName"`
		FileType string `json:"fileType"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.FileName == "" || req.FileType == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "fileName and fileType required")
	}

	fileKey := "products/" + uuid.NewString() + "-" + req.FileName

	signedURL, err := h.Signer.PresignUpload(c.Request().Context(), fileKey, req.FileType, uploadURLTTL)
	if err != nil {
		logging.FromContext(c.Request().Context()).Error("upload_url_failed", "error", err)
		return echo.NewHTTPError(http.StatusBadGateway, "cannot sign upload url")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"signedUrl": signedURL,
		"fileKey":   fileKey,
	})
}

func (h *AdminHandler) invalidateProductViews(c echo.Context) {
	h.Cache.Invalidate(c.Request().Context(),
		cache.TagStoreStats,
		cache.TagTopSelling,
		cache.TagAdminProducts,
		cache.TagAdminDashboard,
	)
}

func (h *AdminHandler) indexProduct(c echo.Context, product *models.Product) {
	if h.ES == nil {
		return
	}
	if err := search.IndexProduct(c.Request().Context(), h.ES, es.ProductIndex, product); err != nil {
		logging.FromContext(c.Request().Context()).Warn("es_index_failed", "error", err)
	}
}

func (h *AdminHandler) deindexProduct(c echo.Context, id int) {
	if h.ES == nil {
		return
	}
	if err := search.DeleteProduct(c.Request().Context(), h.ES, es.ProductIndex, id); err != nil {
		logging.FromContext(c.Request().Context()).Warn("es_deindex_failed", "error", err)
	}
}

func (h *AdminHandler) publish(c echo.Context, productID int, event map[string]interface{}) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, events.TopicProductEvents, strconv.Itoa(productID), event); err != nil {
		logging.FromContext(c.Request().Context()).Warn("event_publish_failed", "error", err)
	}
}
