package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/mkravets/digital-store/internal/logging"
	authmw "github.com/mkravets/digital-store/internal/middleware/auth"
	"github.com/mkravets/digital-store/internal/models"
	"github.com/mkravets/digital-store/internal/storage"
	"github.com/mkravets/digital-store/internal/util"
)

const (
	// VerificationTTL bounds how long a minted download link stays valid.
	VerificationTTL = 24 * time.Hour
	// SignedURLTTL is the provider-enforced expiry on the storage URL itself.
	SignedURLTTL = time.Hour
)

type DownloadHandler struct {
	DB     *gorm.DB
	Signer storage.Signer
}

// RequestDownload authorizes the caller against the order once, mints a
// verification row for the order's product and redirects to the resolver.
// Ownership failures and missing orders are both reported as Unauthorized.
func (h *DownloadHandler) RequestDownload(c echo.Context) error {
	id, ok := authmw.CurrentUser(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "login required")
	}

	orderID := c.Param("id")

	var order models.Order
	err := h.DB.Where("id = ? AND user_id = ?", orderID, id.UserID).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusUnauthorized, "order not found or access denied")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	verification := models.DownloadVerification{
		ID:        uuid.NewString(),
		ProductID: order.ProductID,
		ExpiresAt: time.Now().Add(VerificationTTL),
	}
	if err := h.DB.Create(&verification).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return c.Redirect(http.StatusFound, "/api/v1/download/"+verification.ID)
}

// ResolveDownload exchanges a verification id for a signed storage URL.
// 403 when the id is unknown, 410 when the verification has expired.
func (h *DownloadHandler) ResolveDownload(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "download_resolve")

	verificationID := c.Param("id")

	var verification models.DownloadVerification
	err := h.DB.Preload("Product").Where("id = ?", verificationID).First(&verification).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusForbidden, "Invalid Link")
		}
		l.Error("download_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	if time.Now().After(verification.ExpiresAt) {
		return echo.NewHTTPError(http.StatusGone, "Link Expired")
	}

	filename := util.SafeDownloadName(verification.Product.Name, verification.Product.FilePath)
	signedURL, err := h.Signer.PresignDownload(ctx, verification.Product.FilePath, filename, SignedURLTTL)
	if err != nil {
		l.Error("download_failed", "status", 502, "reason", "signer_error", "error", err)
		return echo.NewHTTPError(http.StatusBadGateway, "cannot sign download url")
	}

	return c.Redirect(http.StatusFound, signedURL)
}
