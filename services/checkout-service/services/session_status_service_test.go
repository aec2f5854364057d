package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yashrajoria/storefront-checkout/services/checkout-service/services"
	"go.uber.org/zap"
)

func TestSessionStatus_ReadsFromProvider(t *testing.T) {
	provider := newFakeProvider()
	hosted, err := provider.CreateSession(context.Background(), services.SessionRequest{OwnerID: "user-1", Currency: "usd", CustomerEmail: "a@example.com"})
	require.NoError(t, err)
	provider.complete(hosted.ID)

	svc := services.NewSessionStatusService(provider, zap.NewNop())
	st, err := svc.GetStatus(context.Background(), hosted.ID)
	require.NoError(t, err)
	assert.Equal(t, "complete", st.Status)
	assert.Equal(t, "paid", st.PaymentStatus)
	assert.Equal(t, "a@example.com", st.CustomerEmail)
}

func TestSessionStatus_Failures(t *testing.T) {
	provider := newFakeProvider()
	svc := services.NewSessionStatusService(provider, zap.NewNop())

	_, err := svc.GetStatus(context.Background(), "  ")
	assert.ErrorIs(t, err, services.ErrSessionNotFound)

	_, err = svc.GetStatus(context.Background(), "cs_unknown")
	assert.ErrorIs(t, err, services.ErrSessionNotFound)

	provider.getErr = errors.New("decode failure")
	_, err = svc.GetStatus(context.Background(), "cs_unknown")
	assert.ErrorIs(t, err, services.ErrInternal)
}
