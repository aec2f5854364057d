package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/yashrajoria/storefront-checkout/services/checkout-service/models"
	"gorm.io/gorm"
)

// ProductRepository reads catalog rows needed to price a cart.
type ProductRepository interface {
	FindProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
	FindVariants(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.ProductVariant, error)
}

type GormProductRepository struct {
	db *gorm.DB
}

func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

func (r *GormProductRepository) FindProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	out := make(map[uuid.UUID]models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Product
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	for _, p := range rows {
		out[p.ID] = p
	}
	return out, nil
}

func (r *GormProductRepository) FindVariants(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.ProductVariant, error) {
	out := make(map[uuid.UUID]models.ProductVariant, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.ProductVariant
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load variants: %w", err)
	}
	for _, v := range rows {
		out[v.ID] = v
	}
	return out, nil
}
