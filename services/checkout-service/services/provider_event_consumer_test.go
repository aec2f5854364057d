package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	awspkg "github.com/yashrajoria/storefront-checkout/pkg/aws"
	"github.com/yashrajoria/storefront-checkout/services/checkout-service/services"
	"go.uber.org/zap"
)

type stubPoller struct {
	bodies []string
	errs   []error
}

func (p *stubPoller) StartPolling(ctx context.Context, handler awspkg.MessageHandler) error {
	for _, b := range p.bodies {
		p.errs = append(p.errs, handler(ctx, b))
	}
	return ctx.Err()
}

func TestProviderEventConsumer_DispatchesThroughProcessor(t *testing.T) {
	good := `{"detail-type":"checkout.session.completed","detail":{"id":"evt_1","type":"checkout.session.completed","data":{"object":{"id":"cs_1","payment_status":"paid","metadata":{"user_id":"u-1"}}}}}`
	poller := &stubPoller{bodies: []string{good, "not json"}}
	proc := &recordingProcessor{}

	c := services.NewProviderEventConsumer(poller, proc, nil, zap.NewNop())
	require.NoError(t, c.Start(context.Background()))

	require.Len(t, proc.events, 1)
	assert.Equal(t, "evt_1", proc.events[0].EventID())
	assert.Equal(t, []error{nil, nil}, poller.errs)
}

func TestProviderEventConsumer_ProcessorFailureKeepsMessage(t *testing.T) {
	proc := &recordingProcessor{err: errors.New("db down")}
	c := services.NewProviderEventConsumer(&stubPoller{}, proc, nil, zap.NewNop())

	body := `{"id":"evt_1","type":"checkout.session.completed","data":{"object":{"id":"cs_1","payment_status":"paid","metadata":{"user_id":"u-1"}}}}`
	assert.Error(t, c.HandleMessage(context.Background(), body))
}
