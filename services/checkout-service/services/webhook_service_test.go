package services_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v80/webhook"
	"github.com/yashrajoria/storefront-checkout/services/checkout-service/services"
	"go.uber.org/zap"
)

const webhookSecret = "whsec_test_secret"

func completedEventJSON(eventID, sessionID, userID string, amount int64) []byte {
	return []byte(fmt.Sprintf(`{
  "id": %q,
  "object": "event",
  "api_version": "2024-06-20",
  "type": "checkout.session.completed",
  "data": {
    "object": {
      "id": %q,
      "object": "checkout.session",
      "status": "complete",
      "payment_status": "paid",
      "amount_total": %d,
      "currency": "usd",
      "metadata": {"user_id": %q},
      "customer_details": {"email": "shopper@example.com"},
      "shipping_details": {"name": "Ada", "address": {"line1": "1 Main St", "city": "Springfield", "postal_code": "12345", "country": "US"}}
    }
  }
}`, eventID, sessionID, amount, userID))
}

func sign(payload []byte) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    webhookSecret,
		Timestamp: time.Now(),
	}).Header
}

type recordingProcessor struct {
	mu      sync.Mutex
	events  []services.ProviderEvent
	ctxErrs []error
	err     error
}

func (p *recordingProcessor) Process(ctx context.Context, ev services.ProviderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	p.ctxErrs = append(p.ctxErrs, ctx.Err())
	return p.err
}

func newWebhookService(proc services.EventProcessor) services.WebhookService {
	return services.NewWebhookService(services.NewStripeWebhookVerifier(webhookSecret), proc, 5*time.Second, nil, zap.NewNop())
}

func TestHandleWebhook_ValidSignature(t *testing.T) {
	proc := &recordingProcessor{}
	svc := newWebhookService(proc)
	payload := completedEventJSON("evt_1", "cs_test_1", "user-1", 2000)

	err := svc.HandleWebhook(context.Background(), payload, sign(payload))
	require.NoError(t, err)
	require.Len(t, proc.events, 1)

	ev, ok := proc.events[0].(services.CheckoutCompleted)
	require.True(t, ok)
	assert.Equal(t, "cs_test_1", ev.Session.ID)
	assert.Equal(t, "user-1", ev.Session.OwnerID())
	assert.Equal(t, int64(2000), ev.Session.AmountTotal)
	assert.Equal(t, "shopper@example.com", ev.Session.Email())
	require.NotNil(t, ev.Session.Shipping())
	assert.Equal(t, "Springfield", ev.Session.Shipping().City)
}

func TestHandleWebhook_TamperedPayloadRejected(t *testing.T) {
	proc := &recordingProcessor{}
	svc := newWebhookService(proc)
	original := completedEventJSON("evt_1", "cs_test_1", "user-1", 2000)
	header := sign(original)

	tampered := bytes.Replace(original, []byte(`"amount_total": 2000`), []byte(`"amount_total": 1`), 1)
	require.NotEqual(t, original, tampered)

	err := svc.HandleWebhook(context.Background(), tampered, header)
	assert.ErrorIs(t, err, services.ErrSignatureInvalid)
	assert.Empty(t, proc.events)

	// Identical bytes with a signature computed over them are accepted.
	err = svc.HandleWebhook(context.Background(), tampered, sign(tampered))
	assert.NoError(t, err)
	assert.Len(t, proc.events, 1)
}

func TestHandleWebhook_ReserializedPayloadRejected(t *testing.T) {
	proc := &recordingProcessor{}
	svc := newWebhookService(proc)
	original := completedEventJSON("evt_1", "cs_test_1", "user-1", 2000)
	header := sign(original)

	compact := new(bytes.Buffer)
	require.NoError(t, json.Compact(compact, original))

	err := svc.HandleWebhook(context.Background(), compact.Bytes(), header)
	assert.ErrorIs(t, err, services.ErrSignatureInvalid)
	assert.Empty(t, proc.events)
}

func TestHandleWebhook_WrongSecretOrMissingHeader(t *testing.T) {
	proc := &recordingProcessor{}
	svc := newWebhookService(proc)
	payload := completedEventJSON("evt_1", "cs_test_1", "user-1", 2000)

	other := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{Payload: payload, Secret: "whsec_other"}).Header
	assert.ErrorIs(t, svc.HandleWebhook(context.Background(), payload, other), services.ErrSignatureInvalid)
	assert.ErrorIs(t, svc.HandleWebhook(context.Background(), payload, ""), services.ErrSignatureInvalid)
	assert.Empty(t, proc.events)
}

func TestHandleWebhook_UnknownTypeIgnored(t *testing.T) {
	proc := &recordingProcessor{}
	svc := newWebhookService(proc)
	payload := []byte(`{"id":"evt_2","object":"event","type":"customer.created","data":{"object":{"id":"cus_1","object":"customer"}}}`)

	require.NoError(t, svc.HandleWebhook(context.Background(), payload, sign(payload)))
	require.Len(t, proc.events, 1)
	ignored, ok := proc.events[0].(services.IgnoredEvent)
	require.True(t, ok)
	assert.Equal(t, "customer.created", ignored.Type)
}

func TestHandleWebhook_ProcessingOutlivesCallerCancellation(t *testing.T) {
	proc := &recordingProcessor{}
	svc := newWebhookService(proc)
	payload := completedEventJSON("evt_1", "cs_test_1", "user-1", 2000)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, svc.HandleWebhook(ctx, payload, sign(payload)))
	require.Len(t, proc.ctxErrs, 1)
	assert.NoError(t, proc.ctxErrs[0])
}

func TestHandleWebhook_ProcessorErrorPropagates(t *testing.T) {
	proc := &recordingProcessor{err: services.ErrInternal.Wrap(errors.New("db down"))}
	svc := newWebhookService(proc)
	payload := completedEventJSON("evt_1", "cs_test_1", "user-1", 2000)

	err := svc.HandleWebhook(context.Background(), payload, sign(payload))
	assert.ErrorIs(t, err, services.ErrInternal)
}
