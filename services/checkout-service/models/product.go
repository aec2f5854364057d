package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is the catalog's view of a sellable item. The catalog service owns
// writes; checkout only reads name, price and the active flag.
type Product struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Price     int64     `gorm:"not null" json:"price"` // minor units
	Active    bool      `gorm:"not null" json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProductVariant carries per-variant stock. Stock is never negative.
type ProductVariant struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;index" json:"product_id"`
	Label     string    `gorm:"not null" json:"label"`
	Stock     int       `gorm:"not null;check:chk_product_variants_stock,stock >= 0" json:"stock"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
