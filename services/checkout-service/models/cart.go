package models

import (
	"time"

	"github.com/google/uuid"
)

// CartItem is one line of a shopper's cart. VariantID is uuid.Nil when the
// product has no variant; this keeps (user, product, variant) usable as a
// unique key.
type CartItem struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    string    `gorm:"not null;uniqueIndex:ux_cart_items_line,priority:1" json:"user_id"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:ux_cart_items_line,priority:2" json:"product_id"`
	VariantID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:ux_cart_items_line,priority:3" json:"variant_id"`
	Quantity  int       `gorm:"not null;check:chk_cart_items_quantity,quantity >= 1" json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasVariant reports whether the line refers to a specific variant.
func (c CartItem) HasVariant() bool {
	return c.VariantID != uuid.Nil
}

// AddCartItemRequest is the body of POST /cart/items.
type AddCartItemRequest struct {
	ProductID uuid.UUID  `json:"product_id" binding:"required"`
	VariantID *uuid.UUID `json:"variant_id"`
	Quantity  int        `json:"quantity" binding:"required,min=1,max=100"`
}

// CartView is the cart as returned to the shopper, priced from live products.
type CartView struct {
	UserID   string         `json:"user_id"`
	Items    []CartLineView `json:"items"`
	Total    int64          `json:"total"`
	Currency string         `json:"currency"`
}

type CartLineView struct {
	ID           uuid.UUID  `json:"id"`
	ProductID    uuid.UUID  `json:"product_id"`
	VariantID    *uuid.UUID `json:"variant_id,omitempty"`
	Name         string     `json:"name"`
	VariantLabel string     `json:"variant_label,omitempty"`
	UnitPrice    int64      `json:"unit_price"`
	Quantity     int        `json:"quantity"`
	Available    bool       `json:"available"`
}
