package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/yashrajoria/storefront-checkout/services/checkout-service/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Discrepancy reasons.
const (
	ReasonInsufficientStock = "insufficient_stock"
	ReasonVariantMissing    = "variant_missing"
)

// Materialization is everything written for one completed checkout session.
type Materialization struct {
	Order     *models.Order // Items are inserted alongside
	CartOwner string
}

// MaterializeResult describes what the transaction did.
type MaterializeResult struct {
	// Created is false when another delivery already inserted the order.
	Created          bool
	Discrepancies    []models.StockDiscrepancy
	CartLinesCleared int64
}

// OrderRepository is the relational store behind reconciliation and the
// order APIs.
type OrderRepository interface {
	FindByExternalSessionID(ctx context.Context, sessionID string) (*models.Order, error)
	Materialize(ctx context.Context, m Materialization) (*MaterializeResult, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListByUser(ctx context.Context, userID string, page, limit int) ([]models.Order, int64, error)
	AdvanceStatus(ctx context.Context, id uuid.UUID, next models.OrderStatus) (*models.Order, error)
}

type GormOrderRepository struct {
	db *gorm.DB
}

func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

func (r *GormOrderRepository) FindByExternalSessionID(ctx context.Context, sessionID string) (*models.Order, error) {
	var o models.Order
	if err := r.db.WithContext(ctx).
		Where("external_session_id = ?", sessionID).
		First(&o).Error; err != nil {
		return nil, notFound(err)
	}
	return &o, nil
}

var errAlreadyMaterialized = errors.New("order already materialized")

// Materialize writes the order, its items, the stock decrements and the cart
// clear in one transaction. The insert uses ON CONFLICT DO NOTHING on
// external_session_id; losing that race rolls everything back and reports
// Created=false.
func (r *GormOrderRepository) Materialize(ctx context.Context, m Materialization) (*MaterializeResult, error) {
	order := m.Order
	if order == nil || order.ExternalSessionID == "" {
		return nil, errors.New("materialize: order with external session id required")
	}
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	for i := range order.Items {
		if order.Items[i].ID == uuid.Nil {
			order.Items[i].ID = uuid.New()
		}
		order.Items[i].OrderID = order.ID
	}

	result := &MaterializeResult{}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Omit(clause.Associations).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "external_session_id"}},
				DoNothing: true,
			}).
			Create(order)
		if res.Error != nil {
			if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
				return errAlreadyMaterialized
			}
			return fmt.Errorf("insert order: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return errAlreadyMaterialized
		}

		if len(order.Items) > 0 {
			if err := tx.Create(&order.Items).Error; err != nil {
				return fmt.Errorf("insert order items: %w", err)
			}
		}

		discrepancies, err := decrementStock(tx, order)
		if err != nil {
			return err
		}
		if len(discrepancies) > 0 {
			if err := tx.Create(&discrepancies).Error; err != nil {
				return fmt.Errorf("insert stock discrepancies: %w", err)
			}
			if err := tx.Model(&models.Order{}).
				Where("id = ?", order.ID).
				Update("stock_shortfall", true).Error; err != nil {
				return fmt.Errorf("flag stock shortfall: %w", err)
			}
			order.StockShortfall = true
		}
		result.Discrepancies = discrepancies

		cleared := tx.Where("user_id = ?", m.CartOwner).Delete(&models.CartItem{})
		if cleared.Error != nil {
			return fmt.Errorf("clear cart: %w", cleared.Error)
		}
		result.CartLinesCleared = cleared.RowsAffected
		return nil
	})

	if errors.Is(err, errAlreadyMaterialized) {
		return &MaterializeResult{Created: false}, nil
	}
	if err != nil {
		return nil, err
	}
	result.Created = true
	return result, nil
}

// decrementStock applies one conditional decrement per variant. A decrement
// that would take stock below zero is skipped and reported.
func decrementStock(tx *gorm.DB, order *models.Order) ([]models.StockDiscrepancy, error) {
	type want struct {
		productID uuid.UUID
		qty       int
	}
	wanted := make(map[uuid.UUID]*want)
	var variantIDs []uuid.UUID
	for _, it := range order.Items {
		if it.VariantID == uuid.Nil {
			continue
		}
		w, ok := wanted[it.VariantID]
		if !ok {
			w = &want{productID: it.ProductID}
			wanted[it.VariantID] = w
			variantIDs = append(variantIDs, it.VariantID)
		}
		w.qty += it.Quantity
	}
	// Fixed lock order across concurrent orders.
	sort.Slice(variantIDs, func(i, j int) bool { return variantIDs[i].String() < variantIDs[j].String() })

	var discrepancies []models.StockDiscrepancy
	for _, vid := range variantIDs {
		w := wanted[vid]
		res := tx.Model(&models.ProductVariant{}).
			Where("id = ? AND stock >= ?", vid, w.qty).
			Update("stock", gorm.Expr("stock - ?", w.qty))
		if res.Error != nil {
			return nil, fmt.Errorf("decrement stock for variant %s: %w", vid, res.Error)
		}
		if res.RowsAffected == 1 {
			continue
		}

		d := models.StockDiscrepancy{
			ID:        uuid.New(),
			OrderID:   order.ID,
			ProductID: w.productID,
			VariantID: vid,
			Requested: w.qty,
			Reason:    ReasonInsufficientStock,
		}
		var current models.ProductVariant
		err := tx.Select("stock").Where("id = ?", vid).Take(&current).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			d.Reason = ReasonVariantMissing
		case err != nil:
			return nil, fmt.Errorf("read stock for variant %s: %w", vid, err)
		default:
			d.Available = current.Stock
		}
		discrepancies = append(discrepancies, d)
	}
	return discrepancies, nil
}

func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var o models.Order
	if err := r.db.WithContext(ctx).
		Preload("Items").
		First(&o, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &o, nil
}

func (r *GormOrderRepository) ListByUser(ctx context.Context, userID string, page, limit int) ([]models.Order, int64, error) {
	var (
		orders []models.Order
		total  int64
	)

	query := r.db.WithContext(ctx).Model(&models.Order{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	offset := (page - 1) * limit
	if err := query.
		Preload("Items").
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&orders).Error; err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	return orders, total, nil
}

// AdvanceStatus moves an order forward. The UPDATE only matches rows whose
// current status ranks below next, so concurrent writers cannot regress it.
func (r *GormOrderRepository) AdvanceStatus(ctx context.Context, id uuid.UUID, next models.OrderStatus) (*models.Order, error) {
	from := models.PredecessorsOf(next)
	if len(from) == 0 {
		return nil, ErrInvalidTransition
	}

	db := r.db.WithContext(ctx)
	res := db.Model(&models.Order{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(map[string]interface{}{"status": next, "updated_at": time.Now()})
	if res.Error != nil {
		return nil, fmt.Errorf("update order status: %w", res.Error)
	}

	var o models.Order
	if err := db.First(&o, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	if res.RowsAffected == 0 {
		return &o, ErrInvalidTransition
	}
	return &o, nil
}
