package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/client"
	"github.com/stripe/stripe-go/v80/webhook"
	"go.uber.org/zap"
)

// StripeConfig configures the Stripe adapter.
type StripeConfig struct {
	SecretKey string
	// APIURL overrides the API base URL (stripe-mock, tests).
	APIURL  string
	Timeout time.Duration
}

// StripeClient talks to Stripe Checkout through an injected API client. No
// SDK-level retries run on the request path; a circuit breaker fails fast
// while Stripe is unhealthy.
type StripeClient struct {
	api     *client.API
	breaker *gobreaker.CircuitBreaker[*stripe.CheckoutSession]
	logger  *zap.Logger
}

// NewStripeClient builds a client with its own backends.
func NewStripeClient(cfg StripeConfig, logger *zap.Logger) *StripeClient {
	httpClient := &http.Client{Timeout: cfg.Timeout}
	backendCfg := &stripe.BackendConfig{
		HTTPClient:        httpClient,
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     logger.Sugar(),
	}
	if cfg.APIURL != "" {
		backendCfg.URL = stripe.String(cfg.APIURL)
	}

	backends := &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, backendCfg),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, backendCfg),
	}

	breaker := gobreaker.NewCircuitBreaker[*stripe.CheckoutSession](gobreaker.Settings{
		Name:        "stripe",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// Only provider-health failures count against the breaker.
		IsSuccessful: func(err error) bool {
			return err == nil || !isTransient(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &StripeClient{
		api:     client.New(cfg.SecretKey, backends),
		breaker: breaker,
		logger:  logger,
	}
}

func (s *StripeClient) CreateSession(ctx context.Context, req SessionRequest) (*HostedSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		ClientReferenceID: stripe.String(req.OwnerID),
		ShippingAddressCollection: &stripe.CheckoutSessionShippingAddressCollectionParams{
			AllowedCountries: stripe.StringSlice(req.AllowedCountries),
		},
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	for _, line := range req.Lines {
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(req.Currency),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(line.DisplayName()),
				},
				UnitAmount: stripe.Int64(line.UnitPrice),
			},
			Quantity: stripe.Int64(int64(line.Quantity)),
		})
	}
	params.AddMetadata("user_id", req.OwnerID)
	params.Context = ctx

	sess, err := s.breaker.Execute(func() (*stripe.CheckoutSession, error) {
		return s.api.CheckoutSessions.New(params)
	})
	if err != nil {
		return nil, s.mapError("create checkout session", err)
	}
	return &HostedSession{ID: sess.ID, URL: sess.URL}, nil
}

func (s *StripeClient) GetSession(ctx context.Context, sessionID string) (*SessionPayload, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	sess, err := s.breaker.Execute(func() (*stripe.CheckoutSession, error) {
		return s.api.CheckoutSessions.Get(sessionID, params)
	})
	if err != nil {
		return nil, s.mapError("get checkout session", err)
	}

	var raw []byte
	if sess.LastResponse != nil && len(sess.LastResponse.RawJSON) > 0 {
		raw = sess.LastResponse.RawJSON
	} else if raw, err = json.Marshal(sess); err != nil {
		return nil, ErrInternal.Wrap(err)
	}

	payload, err := DecodeSessionPayload(raw)
	if err != nil {
		return nil, ErrInternal.Wrap(err)
	}
	return &payload, nil
}

// mapError translates SDK, transport and breaker failures onto the
// taxonomy.
func (s *StripeClient) mapError(op string, err error) error {
	var se *stripe.Error
	if errors.As(err, &se) {
		if se.HTTPStatusCode == http.StatusNotFound || se.Code == stripe.ErrorCodeResourceMissing {
			return ErrSessionNotFound.Wrap(err)
		}
	}

	if isTransient(err) {
		s.logger.Warn("payment provider unavailable", zap.String("op", op), zap.Error(err))
		return ErrProviderUnavailable.Wrap(fmt.Errorf("%s: %w", op, err))
	}

	s.logger.Error("payment provider rejected request", zap.String("op", op), zap.Error(err))
	return ErrInternal.Wrap(fmt.Errorf("%s: %w", op, err))
}

// isTransient reports failures worth retrying later: transport errors and
// timeouts, 429s, 5xx responses and an open breaker.
func isTransient(err error) bool {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return true
	}
	var se *stripe.Error
	if errors.As(err, &se) {
		return se.HTTPStatusCode == http.StatusTooManyRequests || se.HTTPStatusCode >= http.StatusInternalServerError
	}
	return true
}

// StripeWebhookVerifier checks Stripe-Signature headers with the endpoint
// secret and a 300s timestamp tolerance.
type StripeWebhookVerifier struct {
	secret string
}

func NewStripeWebhookVerifier(secret string) *StripeWebhookVerifier {
	return &StripeWebhookVerifier{secret: secret}
}

func (v *StripeWebhookVerifier) ConstructEvent(payload []byte, signatureHeader string) (stripe.Event, error) {
	return webhook.ConstructEventWithOptions(payload, signatureHeader, v.secret, webhook.ConstructEventOptions{
		Tolerance:                webhook.DefaultTolerance,
		IgnoreAPIVersionMismatch: true,
	})
}
