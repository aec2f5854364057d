package services_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yashrajoria/storefront-checkout/services/checkout-service/models"
	"github.com/yashrajoria/storefront-checkout/services/checkout-service/services"
	"go.uber.org/zap"
)

func newStripeTestClient(t *testing.T, handler http.HandlerFunc, timeout time.Duration) *services.StripeClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return services.NewStripeClient(services.StripeConfig{
		SecretKey: "sk_test_123",
		APIURL:    srv.URL,
		Timeout:   timeout,
	}, zap.NewNop())
}

func TestStripeClient_CreateSessionSendsPricedLines(t *testing.T) {
	var form map[string]string
	client := newStripeTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		assert.NoError(t, r.ParseForm())
		form = map[string]string{}
		for k := range r.PostForm {
			form[k] = r.PostForm.Get(k)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cs_test_abc","object":"checkout.session","url":"https://checkout.stripe.com/c/pay/cs_test_abc"}`))
	}, 2*time.Second)

	sess, err := client.CreateSession(context.Background(), services.SessionRequest{
		OwnerID:          "user-1",
		CustomerEmail:    "buyer@example.com",
		Currency:         "usd",
		SuccessURL:       "http://localhost:3000/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:        "http://localhost:3000/cart",
		AllowedCountries: []string{"US"},
		Lines: []models.PricedLine{
			{ProductID: uuid.New(), Name: "Product A", VariantLabel: "M", UnitPrice: 1000, Quantity: 2},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_test_abc", sess.ID)
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_test_abc", sess.URL)

	assert.Equal(t, "payment", form["mode"])
	assert.Equal(t, "user-1", form["metadata[user_id]"])
	assert.Equal(t, "user-1", form["client_reference_id"])
	assert.Equal(t, "buyer@example.com", form["customer_email"])
	assert.Equal(t, "Product A (M)", form["line_items[0][price_data][product_data][name]"])
	assert.Equal(t, "1000", form["line_items[0][price_data][unit_amount]"])
	assert.Equal(t, "2", form["line_items[0][quantity]"])
	assert.Equal(t, "US", form["shipping_address_collection[allowed_countries][0]"])
}

func TestStripeClient_GetSessionDecodesPayload(t *testing.T) {
	client := newStripeTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/checkout/sessions/cs_test_abc", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "cs_test_abc",
			"object": "checkout.session",
			"status": "complete",
			"payment_status": "paid",
			"amount_total": 2000,
			"currency": "usd",
			"metadata": {"user_id": "user-1"},
			"customer_details": {"email": "buyer@example.com"}
		}`))
	}, 2*time.Second)

	sess, err := client.GetSession(context.Background(), "cs_test_abc")
	require.NoError(t, err)
	assert.Equal(t, "paid", sess.PaymentStatus)
	assert.Equal(t, int64(2000), sess.AmountTotal)
	assert.Equal(t, "user-1", sess.OwnerID())
	assert.Equal(t, "buyer@example.com", sess.Email())
}

func TestStripeClient_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"missing session", http.StatusNotFound, `{"error":{"type":"invalid_request_error","code":"resource_missing","message":"No such checkout.session"}}`, services.ErrSessionNotFound},
		{"provider outage", http.StatusInternalServerError, `{"error":{"type":"api_error","message":"boom"}}`, services.ErrProviderUnavailable},
		{"rate limited", http.StatusTooManyRequests, `{"error":{"type":"invalid_request_error","code":"rate_limit","message":"slow down"}}`, services.ErrProviderUnavailable},
		{"bad key", http.StatusUnauthorized, `{"error":{"type":"invalid_request_error","message":"Invalid API Key"}}`, services.ErrInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newStripeTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}, 2*time.Second)

			_, err := client.GetSession(context.Background(), "cs_test_missing")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestStripeClient_TimeoutIsProviderUnavailable(t *testing.T) {
	client := newStripeTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		_, _ = w.Write([]byte(`{}`))
	}, 50*time.Millisecond)

	_, err := client.CreateSession(context.Background(), services.SessionRequest{
		OwnerID:          "user-1",
		Currency:         "usd",
		AllowedCountries: []string{"US"},
		Lines:            []models.PricedLine{{ProductID: uuid.New(), Name: "Product A", UnitPrice: 100, Quantity: 1}},
	})
	assert.ErrorIs(t, err, services.ErrProviderUnavailable)
}
