package services

import (
	"net/http"

	apperrors "github.com/yashrajoria/storefront-checkout/services/common/errors"
)

// Checkout error taxonomy. Handlers render these through
// apperrors.ErrorMiddleware; only Message reaches the client.
var (
	ErrAuthenticationRequired  = apperrors.New(http.StatusUnauthorized, "authentication required", nil)
	ErrEmptyCart               = apperrors.New(http.StatusBadRequest, "cart is empty", nil)
	ErrProductUnavailable      = apperrors.New(http.StatusBadRequest, "one or more items are no longer available", nil)
	ErrSignatureInvalid        = apperrors.New(http.StatusBadRequest, "invalid webhook signature", nil)
	ErrProviderUnavailable     = apperrors.New(http.StatusServiceUnavailable, "payment provider unavailable, please retry", nil)
	ErrSessionNotFound         = apperrors.New(http.StatusNotFound, "unable to retrieve order", nil)
	ErrOrderNotFound           = apperrors.New(http.StatusNotFound, "order not found", nil)
	ErrCartItemNotFound        = apperrors.New(http.StatusNotFound, "cart item not found", nil)
	ErrDiscrepancyNotFound     = apperrors.New(http.StatusNotFound, "discrepancy not found", nil)
	ErrInvalidStatusTransition = apperrors.New(http.StatusConflict, "order status cannot move backwards", nil)
	ErrInternal                = apperrors.New(http.StatusInternalServerError, "internal error", nil)

	// Outcomes rather than failures. They are logged, never rendered.
	ErrDuplicateEvent    = apperrors.New(http.StatusOK, "duplicate event", nil)
	ErrInsufficientStock = apperrors.New(http.StatusOK, "insufficient stock", nil)
)

// StatusReadFailure is what the success page sees for any lookup failure.
const StatusReadFailure = "unable to retrieve order"
