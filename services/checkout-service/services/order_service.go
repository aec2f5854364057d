package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/yashrajoria/storefront-checkout/services/checkout-service/models"
	"github.com/yashrajoria/storefront-checkout/services/checkout-service/repository"
	"go.uber.org/zap"
)

// OrderService exposes materialized orders to their owners and to admins.
type OrderService interface {
	ListOrders(ctx context.Context, ownerID string, page, limit int) ([]models.Order, int64, error)
	GetOrder(ctx context.Context, ownerID string, id uuid.UUID) (*models.Order, error)
	AdvanceStatus(ctx context.Context, id uuid.UUID, next models.OrderStatus) (*models.Order, error)
	ListDiscrepancies(ctx context.Context, openOnly bool, page, limit int) ([]models.StockDiscrepancy, int64, error)
	ResolveDiscrepancy(ctx context.Context, id uuid.UUID, resolvedBy string) (*models.StockDiscrepancy, error)
}

type orderServiceImpl struct {
	orders        repository.OrderRepository
	discrepancies repository.DiscrepancyRepository
	logger        *zap.Logger
}

func NewOrderService(orders repository.OrderRepository, discrepancies repository.DiscrepancyRepository, logger *zap.Logger) OrderService {
	return &orderServiceImpl{orders: orders, discrepancies: discrepancies, logger: logger}
}

func (s *orderServiceImpl) ListOrders(ctx context.Context, ownerID string, page, limit int) ([]models.Order, int64, error) {
	if ownerID == "" {
		return nil, 0, ErrAuthenticationRequired
	}
	orders, total, err := s.orders.ListByUser(ctx, ownerID, page, limit)
	if err != nil {
		return nil, 0, ErrInternal.Wrap(err)
	}
	return orders, total, nil
}

// GetOrder hides other users' orders behind ErrOrderNotFound.
func (s *orderServiceImpl) GetOrder(ctx context.Context, ownerID string, id uuid.UUID) (*models.Order, error) {
	if ownerID == "" {
		return nil, ErrAuthenticationRequired
	}
	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, ErrInternal.Wrap(err)
	}
	if order.UserID != ownerID {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func (s *orderServiceImpl) AdvanceStatus(ctx context.Context, id uuid.UUID, next models.OrderStatus) (*models.Order, error) {
	if !next.Valid() {
		return nil, ErrInvalidStatusTransition
	}
	order, err := s.orders.AdvanceStatus(ctx, id, next)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, ErrOrderNotFound
	case errors.Is(err, repository.ErrInvalidTransition):
		return nil, ErrInvalidStatusTransition
	case err != nil:
		return nil, ErrInternal.Wrap(err)
	}
	s.logger.Info("order status advanced",
		zap.String("order_id", id.String()),
		zap.String("status", string(order.Status)),
	)
	return order, nil
}

func (s *orderServiceImpl) ListDiscrepancies(ctx context.Context, openOnly bool, page, limit int) ([]models.StockDiscrepancy, int64, error) {
	rows, total, err := s.discrepancies.List(ctx, openOnly, page, limit)
	if err != nil {
		return nil, 0, ErrInternal.Wrap(err)
	}
	return rows, total, nil
}

func (s *orderServiceImpl) ResolveDiscrepancy(ctx context.Context, id uuid.UUID, resolvedBy string) (*models.StockDiscrepancy, error) {
	d, err := s.discrepancies.Resolve(ctx, id, resolvedBy)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrDiscrepancyNotFound
		}
		return nil, ErrInternal.Wrap(err)
	}
	s.logger.Info("stock discrepancy resolved",
		zap.String("discrepancy_id", id.String()),
		zap.String("resolved_by", resolvedBy),
	)
	return d, nil
}
