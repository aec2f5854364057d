package models

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusFulfilled OrderStatus = "fulfilled"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusRefunded  OrderStatus = "refunded"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Where the materialized lines came from.
const (
	LineSourceSnapshot = "snapshot"
	LineSourceLiveCart = "live_cart"
)

var statusRank = map[OrderStatus]int{
	OrderStatusPaid:      1,
	OrderStatusFulfilled: 2,
	OrderStatusShipped:   3,
	OrderStatusDelivered: 4,
	OrderStatusRefunded:  5,
	OrderStatusCancelled: 5,
}

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// Terminal reports whether no further transition is possible.
func (s OrderStatus) Terminal() bool {
	return statusRank[s] == 5
}

// CanAdvanceTo reports whether moving from s to next keeps the history
// append-only: the rank must strictly increase.
func (s OrderStatus) CanAdvanceTo(next OrderStatus) bool {
	cur, ok := statusRank[s]
	if !ok || !next.Valid() {
		return false
	}
	return statusRank[next] > cur
}

// PredecessorsOf lists the statuses from which next may be reached.
func PredecessorsOf(next OrderStatus) []OrderStatus {
	var out []OrderStatus
	for _, s := range []OrderStatus{OrderStatusPaid, OrderStatusFulfilled, OrderStatusShipped, OrderStatusDelivered} {
		if s.CanAdvanceTo(next) {
			out = append(out, s)
		}
	}
	return out
}

// ShippingAddress is the address collected by the payment provider.
type ShippingAddress struct {
	Name       string `gorm:"column:shipping_name" json:"name"`
	Line1      string `gorm:"column:shipping_line1" json:"line1"`
	Line2      string `gorm:"column:shipping_line2" json:"line2,omitempty"`
	City       string `gorm:"column:shipping_city" json:"city"`
	State      string `gorm:"column:shipping_state" json:"state,omitempty"`
	PostalCode string `gorm:"column:shipping_postal_code" json:"postal_code"`
	Country    string `gorm:"column:shipping_country" json:"country"`
}

// Order is created exactly once per completed checkout session.
// ExternalSessionID is the idempotency key.
type Order struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	UserID            string          `gorm:"not null;index" json:"user_id"`
	TotalAmount       int64           `gorm:"not null" json:"total_amount"`
	ProviderAmount    int64           `gorm:"not null" json:"provider_amount"`
	Currency          string          `gorm:"size:3;not null" json:"currency"`
	Status            OrderStatus     `gorm:"type:varchar(20);not null;index" json:"status"`
	Shipping          ShippingAddress `gorm:"embedded" json:"shipping"`
	CustomerEmail     string          `json:"customer_email,omitempty"`
	ExternalSessionID string          `gorm:"not null;uniqueIndex:ux_orders_external_session_id" json:"external_session_id"`
	StockShortfall    bool            `gorm:"not null" json:"stock_shortfall"`
	LineSource        string          `gorm:"type:varchar(20);not null" json:"line_source"`
	Items             []OrderItem     `gorm:"foreignKey:OrderID" json:"items,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// OrderItem is a frozen copy of what was bought. It does not follow later
// catalog edits.
type OrderItem struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID      uuid.UUID `gorm:"type:uuid;not null;index" json:"order_id"`
	ProductID    uuid.UUID `gorm:"type:uuid;not null" json:"product_id"`
	VariantID    uuid.UUID `gorm:"type:uuid;not null" json:"variant_id"`
	ProductName  string    `gorm:"not null" json:"product_name"`
	VariantLabel string    `json:"variant_label,omitempty"`
	UnitPrice    int64     `gorm:"not null" json:"unit_price"`
	Quantity     int       `gorm:"not null" json:"quantity"`
}

// StockDiscrepancy records a decrement that was skipped because stock was
// insufficient. Someone resolves it by hand.
type StockDiscrepancy struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"order_id"`
	ProductID  uuid.UUID  `gorm:"type:uuid;not null" json:"product_id"`
	VariantID  uuid.UUID  `gorm:"type:uuid;not null" json:"variant_id"`
	Requested  int        `gorm:"not null" json:"requested"`
	Available  int        `gorm:"not null" json:"available"`
	Reason     string     `gorm:"not null" json:"reason"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	ResolvedBy string     `json:"resolved_by,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// UpdateOrderStatusRequest is the body of PATCH /admin/orders/:id/status.
type UpdateOrderStatusRequest struct {
	Status OrderStatus `json:"status" binding:"required,order_status"`
}
