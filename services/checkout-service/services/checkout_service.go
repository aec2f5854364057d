package services

import (
	"context"
	"errors"
	"time"

	awspkg "github.com/yashrajoria/storefront-checkout/pkg/aws"
	"github.com/yashrajoria/storefront-checkout/services/checkout-service/models"
	"github.com/yashrajoria/storefront-checkout/services/checkout-service/repository"
	"github.com/yashrajoria/storefront-checkout/services/common/logger"
	"go.uber.org/zap"
)

// CheckoutOptions are the per-deployment settings for hosted sessions.
type CheckoutOptions struct {
	Currency         string
	SuccessURL       string
	CancelURL        string
	AllowedCountries []string
}

// CheckoutService turns a cart into a hosted payment session.
type CheckoutService interface {
	CreateSession(ctx context.Context, ownerID, customerEmail string) (*models.CheckoutSessionResponse, error)
}

type checkoutServiceImpl struct {
	carts     repository.CartRepository
	products  repository.ProductRepository
	snapshots repository.SnapshotStore
	provider  PaymentProvider
	opts      CheckoutOptions
	metrics   MetricsRecorder
	logger    *zap.Logger
}

func NewCheckoutService(
	carts repository.CartRepository,
	products repository.ProductRepository,
	snapshots repository.SnapshotStore,
	provider PaymentProvider,
	opts CheckoutOptions,
	metrics MetricsRecorder,
	logger *zap.Logger,
) CheckoutService {
	return &checkoutServiceImpl{
		carts:     carts,
		products:  products,
		snapshots: snapshots,
		provider:  provider,
		opts:      opts,
		metrics:   metrics,
		logger:    logger,
	}
}

// CreateSession prices the owner's cart from live product rows and asks the
// provider for a hosted session. Nothing durable is written locally; the
// priced lines go to the expiring snapshot store.
func (s *checkoutServiceImpl) CreateSession(ctx context.Context, ownerID, customerEmail string) (*models.CheckoutSessionResponse, error) {
	if ownerID == "" {
		return nil, ErrAuthenticationRequired
	}
	log := logger.For(ctx, s.logger).With(zap.String("user_id", ownerID))

	items, err := s.carts.ListItems(ctx, ownerID)
	if err != nil {
		return nil, ErrInternal.Wrap(err)
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	priced, err := priceCart(ctx, s.products, items)
	if err != nil {
		return nil, ErrInternal.Wrap(err)
	}
	if len(priced.unavailable) > 0 {
		log.Info("checkout blocked by unavailable items", zap.Int("unavailable", len(priced.unavailable)))
		return nil, ErrProductUnavailable
	}

	session, err := s.provider.CreateSession(ctx, SessionRequest{
		OwnerID:          ownerID,
		CustomerEmail:    customerEmail,
		Currency:         s.opts.Currency,
		Lines:            priced.lines,
		SuccessURL:       s.opts.SuccessURL,
		CancelURL:        s.opts.CancelURL,
		AllowedCountries: s.opts.AllowedCountries,
	})
	if err != nil {
		if errors.Is(err, ErrProviderUnavailable) {
			countAsync(s.metrics, s.logger, awspkg.MetricProviderErrors)
		}
		return nil, err
	}

	snap := &models.CheckoutSnapshot{
		SessionID: session.ID,
		UserID:    ownerID,
		Currency:  s.opts.Currency,
		Lines:     priced.lines,
		Total:     models.LinesTotal(priced.lines),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.snapshots.Save(ctx, snap); err != nil {
		// The unused provider session expires on its own.
		log.Error("failed to store checkout snapshot", zap.String("session_id", session.ID), zap.Error(err))
		return nil, ErrProviderUnavailable.Wrap(err)
	}

	countAsync(s.metrics, s.logger, awspkg.MetricCheckoutSessionsCreated)
	log.Info("checkout session created",
		zap.String("session_id", session.ID),
		zap.Int64("total", snap.Total),
		zap.Int("lines", len(snap.Lines)),
	)
	return &models.CheckoutSessionResponse{SessionID: session.ID, URL: session.URL}, nil
}
