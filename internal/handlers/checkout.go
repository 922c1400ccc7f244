package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/stripe/stripe-go/v81"
	"gorm.io/gorm"

	"github.com/mkravets/digital-store/internal/logging"
	authmw "github.com/mkravets/digital-store/internal/middleware/auth"
	"github.com/mkravets/digital-store/internal/models"
	"github.com/mkravets/digital-store/internal/payments"
)

type CheckoutHandler struct {
	DB       *gorm.DB
	Sessions payments.SessionCreator
	AppURL   string
}

// CreateSession builds a provider checkout session for one product. No local
// state is written here; the order exists only once the webhook confirms
// payment.
func (h *CheckoutHandler) CreateSession(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "checkout")

	id, ok := authmw.CurrentUser(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "login required")
	}

	productID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	var product models.Product
	if err := h.DB.First(&product, productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "product not found")
		}
		l.Error("checkout_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", id.UserID).Error; err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "login required")
	}

	params := &stripe.CheckoutSessionParams{
		SuccessURL:    stripe.String(h.AppURL + "/orders?success=true"),
		CancelURL:     stripe.String(fmt.Sprintf("%s/products/%d?canceled=true", h.AppURL, product.ID)),
		CustomerEmail: stripe.String(user.Email),
		Mode:          stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Quantity: stripe.Int64(1),
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(string(stripe.CurrencyUSD)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(product.Name),
					},
					UnitAmount: stripe.Int64(int64(product.PriceInCents)),
				},
			},
		},
	}
	params.AddMetadata(payments.MetaUserID, user.ID)
	params.AddMetadata(payments.MetaProductID, strconv.Itoa(product.ID))

	session, err := h.Sessions.CreateSession(params)
	if err != nil {
		l.Error("checkout_failed", "status", 502, "reason", "provider_error", "error", err)
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "failed to create checkout session"})
	}
	if session.URL == "" {
		l.Error("checkout_failed", "status", 502, "reason", "empty_session_url")
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "failed to create checkout session"})
	}

	l.Info("checkout_session_created", "product_id", product.ID)
	return c.JSON(http.StatusOK, echo.Map{"url": session.URL})
}
