package models

import (
	"time"

	"github.com/google/uuid"
)

// PricedLine is a cart line priced at a point in time.
type PricedLine struct {
	ProductID    uuid.UUID `json:"product_id"`
	VariantID    uuid.UUID `json:"variant_id"`
	Name         string    `json:"name"`
	VariantLabel string    `json:"variant_label,omitempty"`
	UnitPrice    int64     `json:"unit_price"`
	Quantity     int       `json:"quantity"`
}

// DisplayName is the line name shown on the hosted payment page.
func (l PricedLine) DisplayName() string {
	if l.VariantLabel == "" {
		return l.Name
	}
	return l.Name + " (" + l.VariantLabel + ")"
}

// Subtotal is unit price times quantity.
func (l PricedLine) Subtotal() int64 {
	return l.UnitPrice * int64(l.Quantity)
}

// LinesTotal sums the subtotals of lines.
func LinesTotal(lines []PricedLine) int64 {
	var total int64
	for _, l := range lines {
		total += l.Subtotal()
	}
	return total
}

// CheckoutSnapshot binds a provider session to the owner and the priced
// lines they were charged for. It lives in Redis with a TTL.
type CheckoutSnapshot struct {
	SessionID string       `json:"session_id"`
	UserID    string       `json:"user_id"`
	Currency  string       `json:"currency"`
	Lines     []PricedLine `json:"lines"`
	Total     int64        `json:"total"`
	CreatedAt time.Time    `json:"created_at"`
}

// CreateCheckoutRequest is the optional body of POST /checkout/session.
type CreateCheckoutRequest struct {
	CustomerEmail string `json:"customer_email" binding:"omitempty,email"`
}

// CheckoutSessionResponse is returned after a hosted session is created.
type CheckoutSessionResponse struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

// SessionStatus is what the success page polls for. It is always read from
// the payment provider.
type SessionStatus struct {
	SessionID     string           `json:"session_id"`
	Status        string           `json:"status"`
	PaymentStatus string           `json:"payment_status"`
	AmountTotal   int64            `json:"amount_total"`
	Currency      string           `json:"currency"`
	CustomerEmail string           `json:"customer_email,omitempty"`
	Shipping      *ShippingAddress `json:"shipping,omitempty"`
}
