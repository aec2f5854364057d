package models

import (
	"time"

	"github.com/google/uuid"
)

// Event types published to the order topic.
const (
	EventOrderCreated       = "order.created"
	EventInventoryShortfall = "inventory.shortfall"
)

// OrderCreatedEvent is published after an order is committed.
type OrderCreatedEvent struct {
	Type              string    `json:"type"`
	OrderID           uuid.UUID `json:"order_id"`
	UserID            string    `json:"user_id"`
	ExternalSessionID string    `json:"external_session_id"`
	TotalAmount       int64     `json:"total_amount"`
	Currency          string    `json:"currency"`
	ItemCount         int       `json:"item_count"`
	StockShortfall    bool      `json:"stock_shortfall"`
	Timestamp         time.Time `json:"timestamp"`
}

// InventoryShortfallEvent is published once per order with skipped decrements.
type InventoryShortfallEvent struct {
	Type          string             `json:"type"`
	OrderID       uuid.UUID          `json:"order_id"`
	Discrepancies []StockDiscrepancy `json:"discrepancies"`
	Timestamp     time.Time          `json:"timestamp"`
}
