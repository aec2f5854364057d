package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/yashrajoria/storefront-checkout/services/checkout-service/models"
	"github.com/yashrajoria/storefront-checkout/services/checkout-service/repository"
	"go.uber.org/zap"
)

// CartService manages a shopper's cart lines.
type CartService interface {
	GetCart(ctx context.Context, ownerID string) (*models.CartView, error)
	AddItem(ctx context.Context, ownerID string, req *models.AddCartItemRequest) (*models.CartView, error)
	RemoveItem(ctx context.Context, ownerID string, itemID uuid.UUID) (*models.CartView, error)
	ClearCart(ctx context.Context, ownerID string) error
}

type cartServiceImpl struct {
	carts    repository.CartRepository
	products repository.ProductRepository
	currency string
	logger   *zap.Logger
}

func NewCartService(carts repository.CartRepository, products repository.ProductRepository, currency string, logger *zap.Logger) CartService {
	return &cartServiceImpl{carts: carts, products: products, currency: currency, logger: logger}
}

func (s *cartServiceImpl) GetCart(ctx context.Context, ownerID string) (*models.CartView, error) {
	if ownerID == "" {
		return nil, ErrAuthenticationRequired
	}
	items, err := s.carts.ListItems(ctx, ownerID)
	if err != nil {
		return nil, ErrInternal.Wrap(err)
	}
	return s.view(ctx, ownerID, items)
}

func (s *cartServiceImpl) AddItem(ctx context.Context, ownerID string, req *models.AddCartItemRequest) (*models.CartView, error) {
	if ownerID == "" {
		return nil, ErrAuthenticationRequired
	}

	item := models.CartItem{
		UserID:    ownerID,
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
	}
	if req.VariantID != nil {
		item.VariantID = *req.VariantID
	}

	priced, err := priceCart(ctx, s.products, []models.CartItem{item})
	if err != nil {
		return nil, ErrInternal.Wrap(err)
	}
	if len(priced.unavailable) > 0 {
		return nil, ErrProductUnavailable
	}

	if _, err := s.carts.AddItem(ctx, &item); err != nil {
		return nil, ErrInternal.Wrap(err)
	}
	return s.GetCart(ctx, ownerID)
}

func (s *cartServiceImpl) RemoveItem(ctx context.Context, ownerID string, itemID uuid.UUID) (*models.CartView, error) {
	if ownerID == "" {
		return nil, ErrAuthenticationRequired
	}
	if err := s.carts.RemoveItem(ctx, ownerID, itemID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCartItemNotFound
		}
		return nil, ErrInternal.Wrap(err)
	}
	return s.GetCart(ctx, ownerID)
}

func (s *cartServiceImpl) ClearCart(ctx context.Context, ownerID string) error {
	if ownerID == "" {
		return ErrAuthenticationRequired
	}
	if _, err := s.carts.Clear(ctx, ownerID); err != nil {
		return ErrInternal.Wrap(err)
	}
	return nil
}

// view prices the cart for display. Unavailable lines stay visible, flagged,
// so the shopper can remove them.
func (s *cartServiceImpl) view(ctx context.Context, ownerID string, items []models.CartItem) (*models.CartView, error) {
	priced, err := priceCart(ctx, s.products, items)
	if err != nil {
		return nil, ErrInternal.Wrap(err)
	}

	type key struct{ product, variant uuid.UUID }
	byKey := make(map[key]models.PricedLine, len(priced.lines))
	for _, l := range priced.lines {
		byKey[key{l.ProductID, l.VariantID}] = l
	}

	view := &models.CartView{UserID: ownerID, Currency: s.currency, Items: make([]models.CartLineView, 0, len(items))}
	for _, it := range items {
		lv := models.CartLineView{
			ID:        it.ID,
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
		}
		if it.HasVariant() {
			vid := it.VariantID
			lv.VariantID = &vid
		}
		if l, ok := byKey[key{it.ProductID, it.VariantID}]; ok {
			lv.Name = l.Name
			lv.VariantLabel = l.VariantLabel
			lv.UnitPrice = l.UnitPrice
			lv.Available = true
			view.Total += l.Subtotal()
		}
		view.Items = append(view.Items, lv)
	}
	return view, nil
}
