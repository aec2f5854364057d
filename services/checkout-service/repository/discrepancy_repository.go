package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/yashrajoria/storefront-checkout/services/checkout-service/models"
	"gorm.io/gorm"
)

// DiscrepancyRepository backs the manual stock reconciliation queue.
type DiscrepancyRepository interface {
	List(ctx context.Context, openOnly bool, page, limit int) ([]models.StockDiscrepancy, int64, error)
	Resolve(ctx context.Context, id uuid.UUID, resolvedBy string) (*models.StockDiscrepancy, error)
}

type GormDiscrepancyRepository struct {
	db *gorm.DB
}

func NewGormDiscrepancyRepository(db *gorm.DB) *GormDiscrepancyRepository {
	return &GormDiscrepancyRepository{db: db}
}

func (r *GormDiscrepancyRepository) List(ctx context.Context, openOnly bool, page, limit int) ([]models.StockDiscrepancy, int64, error) {
	var (
		rows  []models.StockDiscrepancy
		total int64
	)

	query := r.db.WithContext(ctx).Model(&models.StockDiscrepancy{})
	if openOnly {
		query = query.Where("resolved_at IS NULL")
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count discrepancies: %w", err)
	}
	if err := query.
		Order("created_at ASC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("list discrepancies: %w", err)
	}
	return rows, total, nil
}

// Resolve marks a discrepancy handled. Resolving twice keeps the first
// resolution.
func (r *GormDiscrepancyRepository) Resolve(ctx context.Context, id uuid.UUID, resolvedBy string) (*models.StockDiscrepancy, error) {
	db := r.db.WithContext(ctx)
	if err := db.Model(&models.StockDiscrepancy{}).
		Where("id = ? AND resolved_at IS NULL", id).
		Updates(map[string]interface{}{"resolved_at": time.Now(), "resolved_by": resolvedBy}).Error; err != nil {
		return nil, fmt.Errorf("resolve discrepancy: %w", err)
	}

	var d models.StockDiscrepancy
	if err := db.First(&d, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &d, nil
}
