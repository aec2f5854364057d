package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/yashrajoria/storefront-checkout/services/checkout-service/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CartRepository stores cart lines in Postgres.
type CartRepository interface {
	// AddItem inserts the line or, when (user, product, variant) already
	// exists, adds its quantity to the existing one. Returns the stored line.
	AddItem(ctx context.Context, item *models.CartItem) (*models.CartItem, error)
	ListItems(ctx context.Context, userID string) ([]models.CartItem, error)
	RemoveItem(ctx context.Context, userID string, id uuid.UUID) error
	Clear(ctx context.Context, userID string) (int64, error)
}

type GormCartRepository struct {
	db *gorm.DB
}

func NewGormCartRepository(db *gorm.DB) *GormCartRepository {
	return &GormCartRepository{db: db}
}

func (r *GormCartRepository) AddItem(ctx context.Context, item *models.CartItem) (*models.CartItem, error) {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}

	db := r.db.WithContext(ctx)
	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "product_id"}, {Name: "variant_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"quantity":   gorm.Expr(`"cart_items"."quantity" + EXCLUDED."quantity"`),
			"updated_at": gorm.Expr(`EXCLUDED."updated_at"`),
		}),
	}).Create(item).Error
	if err != nil {
		return nil, fmt.Errorf("upsert cart item: %w", err)
	}

	var stored models.CartItem
	if err := db.
		Where("user_id = ? AND product_id = ? AND variant_id = ?", item.UserID, item.ProductID, item.VariantID).
		First(&stored).Error; err != nil {
		return nil, notFound(err)
	}
	return &stored, nil
}

func (r *GormCartRepository) ListItems(ctx context.Context, userID string) ([]models.CartItem, error) {
	var items []models.CartItem
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list cart items: %w", err)
	}
	return items, nil
}

func (r *GormCartRepository) RemoveItem(ctx context.Context, userID string, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.CartItem{})
	if res.Error != nil {
		return fmt.Errorf("delete cart item: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormCartRepository) Clear(ctx context.Context, userID string) (int64, error) {
	res := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.CartItem{})
	if res.Error != nil {
		return 0, fmt.Errorf("clear cart: %w", res.Error)
	}
	return res.RowsAffected, nil
}
