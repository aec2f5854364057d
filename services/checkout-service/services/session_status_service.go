package services

import (
	"context"
	"errors"
	"strings"

	"github.com/yashrajoria/storefront-checkout/services/checkout-service/models"
	"github.com/yashrajoria/storefront-checkout/services/common/logger"
	"go.uber.org/zap"
)

// SessionStatusService reads payment status straight from the provider.
// Local orders may lag an in-flight webhook, so they are never consulted.
type SessionStatusService interface {
	GetStatus(ctx context.Context, sessionID string) (*models.SessionStatus, error)
}

type sessionStatusServiceImpl struct {
	provider PaymentProvider
	logger   *zap.Logger
}

func NewSessionStatusService(provider PaymentProvider, logger *zap.Logger) SessionStatusService {
	return &sessionStatusServiceImpl{provider: provider, logger: logger}
}

func (s *sessionStatusServiceImpl) GetStatus(ctx context.Context, sessionID string) (*models.SessionStatus, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, ErrSessionNotFound
	}

	sess, err := s.provider.GetSession(ctx, sessionID)
	if err != nil {
		logger.For(ctx, s.logger).Warn("session status lookup failed",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		if errors.Is(err, ErrSessionNotFound) || errors.Is(err, ErrProviderUnavailable) {
			return nil, err
		}
		return nil, ErrInternal.Wrap(err)
	}

	return &models.SessionStatus{
		SessionID:     sess.ID,
		Status:        sess.Status,
		PaymentStatus: sess.PaymentStatus,
		AmountTotal:   sess.AmountTotal,
		Currency:      sess.Currency,
		CustomerEmail: sess.Email(),
		Shipping:      sess.Shipping(),
	}, nil
}
