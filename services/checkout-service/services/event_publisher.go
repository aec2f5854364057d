package services

import (
	"context"
	"encoding/json"
	"fmt"

	awspkg "github.com/yashrajoria/storefront-checkout/pkg/aws"
	"github.com/yashrajoria/storefront-checkout/services/checkout-service/models"
)

// OrderEventPublisher announces committed orders to downstream services
// (notifications, fulfilment, inventory ops).
type OrderEventPublisher interface {
	PublishOrderCreated(ctx context.Context, ev models.OrderCreatedEvent) error
	PublishInventoryShortfall(ctx context.Context, ev models.InventoryShortfallEvent) error
}

type snsOrderPublisher struct {
	sns      awspkg.SNSPublisher
	topicArn string
}

// NewOrderEventPublisher returns nil when SNS is not configured, which
// callers treat as publishing disabled.
func NewOrderEventPublisher(sns awspkg.SNSPublisher, topicArn string) OrderEventPublisher {
	if sns == nil || topicArn == "" {
		return nil
	}
	return &snsOrderPublisher{sns: sns, topicArn: topicArn}
}

func (p *snsOrderPublisher) PublishOrderCreated(ctx context.Context, ev models.OrderCreatedEvent) error {
	return p.publish(ctx, ev.Type, ev)
}

func (p *snsOrderPublisher) PublishInventoryShortfall(ctx context.Context, ev models.InventoryShortfallEvent) error {
	return p.publish(ctx, ev.Type, ev)
}

func (p *snsOrderPublisher) publish(ctx context.Context, eventType string, v interface{}) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", eventType, err)
	}
	return p.sns.Publish(ctx, p.topicArn, eventType, body)
}
