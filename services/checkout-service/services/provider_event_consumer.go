package services

import (
	"context"

	awspkg "github.com/yashrajoria/storefront-checkout/pkg/aws"
	"go.uber.org/zap"
)

// QueuePoller is implemented by awspkg.SQSConsumer.
type QueuePoller interface {
	StartPolling(ctx context.Context, handler awspkg.MessageHandler) error
}

// ProviderEventConsumer feeds provider events from SQS (EventBridge
// destination) into the same processor as the webhook. Queue IAM policy
// authenticates the source, so no signature is checked here.
type ProviderEventConsumer struct {
	poller    QueuePoller
	processor EventProcessor
	metrics   MetricsRecorder
	logger    *zap.Logger
}

func NewProviderEventConsumer(poller QueuePoller, processor EventProcessor, metrics MetricsRecorder, logger *zap.Logger) *ProviderEventConsumer {
	return &ProviderEventConsumer{poller: poller, processor: processor, metrics: metrics, logger: logger}
}

// Start blocks until ctx is cancelled.
func (c *ProviderEventConsumer) Start(ctx context.Context) error {
	c.logger.Info("provider event consumer started")
	return c.poller.StartPolling(ctx, c.HandleMessage)
}

// HandleMessage returns an error to leave the message on the queue for
// redelivery. Malformed messages are dropped.
func (c *ProviderEventConsumer) HandleMessage(ctx context.Context, body string) error {
	ev, err := DecodeQueuedEvent([]byte(body))
	if err != nil {
		c.logger.Error("dropping malformed provider event message", zap.Error(err))
		return nil
	}
	if err := c.processor.Process(ctx, ev); err != nil {
		return err
	}
	countAsync(c.metrics, c.logger, awspkg.MetricSQSMessages)
	return nil
}
