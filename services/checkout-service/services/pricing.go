package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/yashrajoria/storefront-checkout/services/checkout-service/models"
	"github.com/yashrajoria/storefront-checkout/services/checkout-service/repository"
)

// pricedCart is a cart priced against the live catalog.
type pricedCart struct {
	lines       []models.PricedLine
	unavailable []models.CartItem
}

// priceCart prices items from current product rows. Lines whose product is
// gone or inactive, or whose variant no longer belongs to the product, are
// returned as unavailable.
func priceCart(ctx context.Context, products repository.ProductRepository, items []models.CartItem) (*pricedCart, error) {
	productIDs := make([]uuid.UUID, 0, len(items))
	var variantIDs []uuid.UUID
	for _, it := range items {
		productIDs = append(productIDs, it.ProductID)
		if it.HasVariant() {
			variantIDs = append(variantIDs, it.VariantID)
		}
	}

	productByID, err := products.FindProducts(ctx, productIDs)
	if err != nil {
		return nil, err
	}
	variantByID, err := products.FindVariants(ctx, variantIDs)
	if err != nil {
		return nil, err
	}

	out := &pricedCart{}
	for _, it := range items {
		p, ok := productByID[it.ProductID]
		if !ok || !p.Active {
			out.unavailable = append(out.unavailable, it)
			continue
		}
		line := models.PricedLine{
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			Name:      p.Name,
			UnitPrice: p.Price,
			Quantity:  it.Quantity,
		}
		if it.HasVariant() {
			v, ok := variantByID[it.VariantID]
			if !ok || v.ProductID != it.ProductID {
				out.unavailable = append(out.unavailable, it)
				continue
			}
			line.VariantLabel = v.Label
		}
		out.lines = append(out.lines, line)
	}
	return out, nil
}

// sameLines reports whether two line sets buy the same quantities of the
// same product/variant pairs.
func sameLines(a, b []models.PricedLine) bool {
	type key struct{ product, variant uuid.UUID }
	count := make(map[key]int, len(a))
	for _, l := range a {
		count[key{l.ProductID, l.VariantID}] += l.Quantity
	}
	for _, l := range b {
		count[key{l.ProductID, l.VariantID}] -= l.Quantity
	}
	for _, n := range count {
		if n != 0 {
			return false
		}
	}
	return true
}
