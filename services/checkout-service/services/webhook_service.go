package services

import (
	"context"
	"time"

	awspkg "github.com/yashrajoria/storefront-checkout/pkg/aws"
	"github.com/yashrajoria/storefront-checkout/services/common/logger"
	"go.uber.org/zap"
)

// WebhookService authenticates and handles provider notifications.
type WebhookService interface {
	HandleWebhook(ctx context.Context, payload []byte, signatureHeader string) error
}

type webhookServiceImpl struct {
	verifier  WebhookVerifier
	processor EventProcessor
	timeout   time.Duration
	metrics   MetricsRecorder
	logger    *zap.Logger
}

func NewWebhookService(verifier WebhookVerifier, processor EventProcessor, timeout time.Duration, metrics MetricsRecorder, logger *zap.Logger) WebhookService {
	return &webhookServiceImpl{
		verifier:  verifier,
		processor: processor,
		timeout:   timeout,
		metrics:   metrics,
		logger:    logger,
	}
}

// HandleWebhook verifies payload exactly as received, then processes it.
// Processing does not stop when the caller disconnects: it runs on a
// context detached from ctx, bounded by the reconcile timeout.
func (s *webhookServiceImpl) HandleWebhook(ctx context.Context, payload []byte, signatureHeader string) error {
	log := logger.For(ctx, s.logger)

	evt, err := s.verifier.ConstructEvent(payload, signatureHeader)
	if err != nil {
		log.Warn("webhook signature verification failed", zap.Error(err))
		countAsync(s.metrics, s.logger, awspkg.MetricWebhookSignatureFailed)
		return ErrSignatureInvalid.Wrap(err)
	}

	ev, err := DecodeEvent(evt)
	if err != nil {
		// Authentic but undecodable: retrying will not help.
		log.Error("failed to decode provider event",
			zap.String("event_id", evt.ID),
			zap.String("event_type", string(evt.Type)),
			zap.Error(err),
		)
		return nil
	}

	log.Info("processing provider webhook",
		zap.String("event_id", ev.EventID()),
		zap.String("event_type", ev.EventType()),
	)

	procCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()
	return s.processor.Process(procCtx, ev)
}
