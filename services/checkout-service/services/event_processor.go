package services

import (
	"context"

	awspkg "github.com/yashrajoria/storefront-checkout/pkg/aws"
	"github.com/yashrajoria/storefront-checkout/services/checkout-service/repository"
	"github.com/yashrajoria/storefront-checkout/services/common/logger"
	"go.uber.org/zap"
)

// EventProcessor dispatches decoded provider events. The webhook endpoint
// and the queue consumer share it.
type EventProcessor interface {
	Process(ctx context.Context, ev ProviderEvent) error
}

type eventProcessorImpl struct {
	reconciler Reconciler
	processed  repository.ProcessedEventCache
	metrics    MetricsRecorder
	logger     *zap.Logger
}

func NewEventProcessor(reconciler Reconciler, processed repository.ProcessedEventCache, metrics MetricsRecorder, logger *zap.Logger) EventProcessor {
	return &eventProcessorImpl{
		reconciler: reconciler,
		processed:  processed,
		metrics:    metrics,
		logger:     logger,
	}
}

// Process returns an error only when the event must be delivered again.
func (p *eventProcessorImpl) Process(ctx context.Context, ev ProviderEvent) error {
	log := logger.For(ctx, p.logger).With(
		zap.String("event_id", ev.EventID()),
		zap.String("event_type", ev.EventType()),
	)

	switch e := ev.(type) {
	case CheckoutCompleted:
		if e.Session.OwnerID() == "" {
			// Redelivery cannot add the metadata; acknowledge and alert.
			log.Error("completed session has no user_id metadata", zap.String("session_id", e.Session.ID))
			return nil
		}
		if p.alreadyProcessed(ctx, log, e.ID) {
			log.Info("event already processed")
			countAsync(p.metrics, p.logger, awspkg.MetricWebhookDuplicates)
			return nil
		}
		if _, err := p.reconciler.Reconcile(ctx, e); err != nil {
			return err
		}
		p.markProcessed(ctx, log, e.ID)
		return nil

	case PaymentFailed:
		log.Warn("payment failed",
			zap.String("session_id", e.SessionID),
			zap.String("user_id", e.OwnerID),
			zap.String("reason", e.Reason),
		)
		countAsync(p.metrics, p.logger, awspkg.MetricPaymentFailed)
		return nil

	case IgnoredEvent:
		log.Debug("ignoring provider event", zap.String("reason", e.Reason))
		return nil

	default:
		log.Warn("unknown provider event variant")
		return nil
	}
}

func (p *eventProcessorImpl) alreadyProcessed(ctx context.Context, log *zap.Logger, eventID string) bool {
	if p.processed == nil || eventID == "" {
		return false
	}
	seen, err := p.processed.Seen(ctx, eventID)
	if err != nil {
		log.Warn("processed-event cache unavailable", zap.Error(err))
		return false
	}
	return seen
}

func (p *eventProcessorImpl) markProcessed(ctx context.Context, log *zap.Logger, eventID string) {
	if p.processed == nil || eventID == "" {
		return
	}
	if err := p.processed.MarkProcessed(ctx, eventID); err != nil {
		log.Warn("failed to mark event processed", zap.Error(err))
	}
}
