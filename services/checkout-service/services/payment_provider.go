package services

import (
	"context"

	"github.com/stripe/stripe-go/v80"
	"github.com/yashrajoria/storefront-checkout/services/checkout-service/models"
)

// SessionRequest is what the hosted payment page is created from.
type SessionRequest struct {
	OwnerID          string
	CustomerEmail    string
	Currency         string
	Lines            []models.PricedLine
	SuccessURL       string
	CancelURL        string
	AllowedCountries []string
}

// HostedSession is the provider's handle for a created session.
type HostedSession struct {
	ID  string
	URL string
}

// PaymentProvider is the outbound side of the payment boundary. Errors are
// already mapped onto the checkout taxonomy.
type PaymentProvider interface {
	CreateSession(ctx context.Context, req SessionRequest) (*HostedSession, error)
	GetSession(ctx context.Context, sessionID string) (*SessionPayload, error)
}

// WebhookVerifier authenticates inbound notifications over the exact bytes
// received.
type WebhookVerifier interface {
	ConstructEvent(payload []byte, signatureHeader string) (stripe.Event, error)
}
