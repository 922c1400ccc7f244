package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"
	"gorm.io/gorm"

	"github.com/mkravets/digital-store/internal/cache"
	"github.com/mkravets/digital-store/internal/events"
	"github.com/mkravets/digital-store/internal/logging"
	"github.com/mkravets/digital-store/internal/models"
	"github.com/mkravets/digital-store/internal/payments"
)

type WebhookHandler struct {
	DB            *gorm.DB
	Cache         *cache.Cache
	Producer      *events.Producer
	WebhookSecret string
}

// fulfillment is the validated payload extracted from a checkout-completed
// event. Parsing fails closed: any missing field rejects the whole event.
type fulfillment struct {
	UserID          string
	ProductID       int
	PaymentIntentID string
	AmountTotal     int
}

func parseFulfillment(session *stripe.CheckoutSession) (*fulfillment, error) {
	userID := session.Metadata[payments.MetaUserID]
	productIDRaw := session.Metadata[payments.MetaProductID]
	if userID == "" || productIDRaw == "" {
		return nil, errors.New("missing metadata")
	}
	productID, err := strconv.Atoi(productIDRaw)
	if err != nil {
		return nil, errors.New("malformed product id")
	}
	if session.PaymentIntent == nil || session.PaymentIntent.ID == "" {
		return nil, errors.New("missing payment intent")
	}
	if session.AmountTotal == 0 {
		return nil, errors.New("missing amount")
	}
	return &fulfillment{
		UserID:          userID,
		ProductID:       productID,
		PaymentIntentID: session.PaymentIntent.ID,
		AmountTotal:     int(session.AmountTotal),
	}, nil
}

// HandleStripe consumes asynchronous payment notifications. Signature and
// metadata failures are terminal (4xx, the provider must not retry); storage
// failures are retryable (5xx); a duplicate payment reference is a success.
func (h *WebhookHandler) HandleStripe(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "stripe_webhook")

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "cannot read body")
	}

	event, err := webhook.ConstructEvent(body, c.Request().Header.Get("Stripe-Signature"), h.WebhookSecret)
	if err != nil {
		l.Warn("webhook_rejected", "status", 400, "reason", "invalid_signature", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid signature")
	}

	if event.Type != "checkout.session.completed" {
		return c.String(http.StatusOK, "ignored")
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		l.Warn("webhook_rejected", "status", 400, "reason", "malformed_event", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "malformed event")
	}

	f, err := parseFulfillment(&session)
	if err != nil {
		l.Warn("webhook_rejected", "status", 400, "reason", "malformed_event", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "malformed event")
	}

	// Fast path for provider retries. Not the safety mechanism: the unique
	// index on stripe_payment_intent_id is.
	var existing models.Order
	err = h.DB.Where("stripe_payment_intent_id = ?", f.PaymentIntentID).First(&existing).Error
	if err == nil {
		return c.String(http.StatusOK, "order already exists")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		l.Error("webhook_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	order := models.Order{
		ID:                    uuid.NewString(),
		UserID:                f.UserID,
		ProductID:             f.ProductID,
		PricePaidInCents:      f.AmountTotal,
		StripePaymentIntentID: f.PaymentIntentID,
	}
	if err := h.DB.Create(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost the race against a concurrent delivery of the same
			// payment reference. The order exists, so this is a success.
			return c.String(http.StatusOK, "order already exists")
		}
		l.Error("webhook_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	h.Cache.Invalidate(ctx,
		cache.UserOrdersTag(order.UserID),
		cache.TagTopSelling,
		cache.TagAdminDashboard,
		cache.TagAdminOrders,
		cache.TagAdminProducts,
		cache.TagAdminUsers,
	)

	h.publish(c, order.UserID, map[string]interface{}{
		"type":       "order_fulfilled",
		"orderID":    order.ID,
		"userID":     order.UserID,
		"productID":  order.ProductID,
		"pricePaid":  order.PricePaidInCents,
		"paymentRef": order.StripePaymentIntentID,
	})

	l.Info("order_fulfilled", "order_id", order.ID, "user_id", order.UserID, "product_id", order.ProductID)
	return c.String(http.StatusOK, "received")
}

func (h *WebhookHandler) publish(c echo.Context, key string, event map[string]interface{}) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, events.TopicOrderEvents, key, event); err != nil {
		logging.FromContext(c.Request().Context()).Warn("event_publish_failed", "error", err)
	}
}
