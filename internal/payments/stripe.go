package payments

import (
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/checkout/session"
)

// MetaUserID and MetaProductID are the metadata keys carried verbatim through
// the checkout session and read back by the webhook handler.
const (
	MetaUserID    = "userId"
	MetaProductID = "productId"
)

// SessionCreator creates a provider-hosted checkout session.
type SessionCreator interface {
	CreateSession(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// Client is the live Stripe-backed SessionCreator.
type Client struct{}

func NewClient(apiKey string) *Client {
	stripe.Key = apiKey
	return &Client{}
}

func (*Client) CreateSession(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	return session.New(params)
}
