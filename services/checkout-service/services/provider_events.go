package services

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v80"
	"github.com/yashrajoria/storefront-checkout/services/checkout-service/models"
)

// Provider event types the service reacts to.
const (
	EventCheckoutCompleted     = "checkout.session.completed"
	EventAsyncPaymentSucceeded = "checkout.session.async_payment_succeeded"
	EventAsyncPaymentFailed    = "checkout.session.async_payment_failed"
	EventPaymentIntentFailed   = "payment_intent.payment_failed"
)

// ProviderEvent is the closed set of decoded provider notifications:
// CheckoutCompleted, PaymentFailed or IgnoredEvent.
type ProviderEvent interface {
	EventID() string
	EventType() string
	providerEvent()
}

// CheckoutCompleted means the customer paid for Session.
type CheckoutCompleted struct {
	ID      string
	Type    string
	Session SessionPayload
}

// PaymentFailed is logged and counted; it never mutates state.
type PaymentFailed struct {
	ID        string
	Type      string
	SessionID string
	OwnerID   string
	Reason    string
}

// IgnoredEvent is acknowledged without action.
type IgnoredEvent struct {
	ID     string
	Type   string
	Reason string
}

func (e CheckoutCompleted) EventID() string   { return e.ID }
func (e CheckoutCompleted) EventType() string { return e.Type }
func (CheckoutCompleted) providerEvent()      {}

func (e PaymentFailed) EventID() string   { return e.ID }
func (e PaymentFailed) EventType() string { return e.Type }
func (PaymentFailed) providerEvent()      {}

func (e IgnoredEvent) EventID() string   { return e.ID }
func (e IgnoredEvent) EventType() string { return e.Type }
func (IgnoredEvent) providerEvent()      {}

// SessionPayload is the part of a checkout session object this service
// reads. It is decoded from raw JSON so it does not depend on how a given
// SDK version models the object.
type SessionPayload struct {
	ID                string            `json:"id"`
	Status            string            `json:"status"`
	PaymentStatus     string            `json:"payment_status"`
	AmountTotal       int64             `json:"amount_total"`
	Currency          string            `json:"currency"`
	ClientReferenceID string            `json:"client_reference_id"`
	CustomerEmail     string            `json:"customer_email"`
	Metadata          map[string]string `json:"metadata"`
	CustomerDetails   *struct {
		Email   string          `json:"email"`
		Name    string          `json:"name"`
		Address *providerAddress `json:"address"`
	} `json:"customer_details"`
	ShippingDetails      *providerShipping `json:"shipping_details"`
	CollectedInformation *struct {
		ShippingDetails *providerShipping `json:"shipping_details"`
	} `json:"collected_information"`
}

type providerShipping struct {
	Name    string           `json:"name"`
	Address *providerAddress `json:"address"`
}

type providerAddress struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// OwnerID is the user id embedded as metadata at session creation.
func (s SessionPayload) OwnerID() string {
	return s.Metadata["user_id"]
}

// Email prefers the address the customer typed on the hosted page.
func (s SessionPayload) Email() string {
	if s.CustomerDetails != nil && s.CustomerDetails.Email != "" {
		return s.CustomerDetails.Email
	}
	return s.CustomerEmail
}

// Paid reports whether funds are captured, or no payment was needed.
func (s SessionPayload) Paid() bool {
	return s.PaymentStatus == string(stripe.CheckoutSessionPaymentStatusPaid) ||
		s.PaymentStatus == string(stripe.CheckoutSessionPaymentStatusNoPaymentRequired)
}

// Shipping returns the collected shipping address. Newer API versions nest
// it under collected_information.
func (s SessionPayload) Shipping() *models.ShippingAddress {
	src := s.ShippingDetails
	if s.CollectedInformation != nil && s.CollectedInformation.ShippingDetails != nil {
		src = s.CollectedInformation.ShippingDetails
	}
	if src == nil || src.Address == nil {
		return nil
	}
	return &models.ShippingAddress{
		Name:       src.Name,
		Line1:      src.Address.Line1,
		Line2:      src.Address.Line2,
		City:       src.Address.City,
		State:      src.Address.State,
		PostalCode: src.Address.PostalCode,
		Country:    src.Address.Country,
	}
}

// DecodeSessionPayload parses a checkout session object.
func DecodeSessionPayload(raw []byte) (SessionPayload, error) {
	var s SessionPayload
	if err := json.Unmarshal(raw, &s); err != nil {
		return SessionPayload{}, fmt.Errorf("decode checkout session: %w", err)
	}
	if s.ID == "" {
		return SessionPayload{}, errors.New("decode checkout session: missing id")
	}
	return s, nil
}

// DecodeEvent maps a verified provider event onto the closed variant set.
// Unknown types become IgnoredEvent.
func DecodeEvent(evt stripe.Event) (ProviderEvent, error) {
	typ := string(evt.Type)
	var raw []byte
	if evt.Data != nil {
		raw = evt.Data.Raw
	}

	switch typ {
	case EventCheckoutCompleted, EventAsyncPaymentSucceeded:
		sess, err := DecodeSessionPayload(raw)
		if err != nil {
			return nil, err
		}
		if !sess.Paid() {
			// Delayed payment methods: wait for async_payment_succeeded.
			return IgnoredEvent{ID: evt.ID, Type: typ, Reason: "payment_status " + sess.PaymentStatus}, nil
		}
		return CheckoutCompleted{ID: evt.ID, Type: typ, Session: sess}, nil

	case EventAsyncPaymentFailed:
		sess, err := DecodeSessionPayload(raw)
		if err != nil {
			return nil, err
		}
		return PaymentFailed{ID: evt.ID, Type: typ, SessionID: sess.ID, OwnerID: sess.OwnerID(), Reason: "async payment failed"}, nil

	case EventPaymentIntentFailed:
		var pi struct {
			ID               string            `json:"id"`
			Metadata         map[string]string `json:"metadata"`
			LastPaymentError *struct {
				Message string `json:"message"`
			} `json:"last_payment_error"`
		}
		if err := json.Unmarshal(raw, &pi); err != nil {
			return nil, fmt.Errorf("decode payment intent: %w", err)
		}
		reason := "payment failed"
		if pi.LastPaymentError != nil && pi.LastPaymentError.Message != "" {
			reason = pi.LastPaymentError.Message
		}
		return PaymentFailed{ID: evt.ID, Type: typ, OwnerID: pi.Metadata["user_id"], Reason: reason}, nil

	default:
		return IgnoredEvent{ID: evt.ID, Type: typ, Reason: "unhandled event type"}, nil
	}
}

// eventBridgeEnvelope is how provider events arrive through an EventBridge
// partner source routed to SQS.
type eventBridgeEnvelope struct {
	DetailType string          `json:"detail-type"`
	Detail     json.RawMessage `json:"detail"`
}

// DecodeQueuedEvent parses a queue message holding either an EventBridge
// envelope or a bare provider event.
func DecodeQueuedEvent(body []byte) (ProviderEvent, error) {
	payload := body
	var env eventBridgeEnvelope
	if err := json.Unmarshal(body, &env); err == nil && env.DetailType != "" && len(env.Detail) > 0 {
		payload = env.Detail
	}

	var evt stripe.Event
	if err := json.Unmarshal(payload, &evt); err != nil {
		return nil, fmt.Errorf("decode queued event: %w", err)
	}
	if evt.ID == "" || evt.Type == "" {
		return nil, errors.New("decode queued event: missing id or type")
	}
	return DecodeEvent(evt)
}
