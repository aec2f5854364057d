package controllers_test

import (
	"context"

	"github.com/google/uuid"
	"github.com/yashrajoria/storefront-checkout/services/checkout-service/models"
)

// ---- concrete mocks implementing the service interfaces ----

type mockCheckoutSvc struct {
	resp      *models.CheckoutSessionResponse
	err       error
	gotOwner  string
	gotEmail  string
	callCount int
}

func (m *mockCheckoutSvc) CreateSession(_ context.Context, ownerID, email string) (*models.CheckoutSessionResponse, error) {
	m.callCount++
	m.gotOwner, m.gotEmail = ownerID, email
	return m.resp, m.err
}

type mockStatusSvc struct {
	status *models.SessionStatus
	err    error
}

func (m *mockStatusSvc) GetStatus(_ context.Context, _ string) (*models.SessionStatus, error) {
	return m.status, m.err
}

type mockWebhookSvc struct {
	err        error
	gotPayload []byte
	gotHeader  string
}

func (m *mockWebhookSvc) HandleWebhook(_ context.Context, payload []byte, header string) error {
	m.gotPayload, m.gotHeader = payload, header
	return m.err
}

type mockCartSvc struct {
	view *models.CartView
	err  error
}

func (m *mockCartSvc) GetCart(_ context.Context, owner string) (*models.CartView, error) {
	return m.view, m.err
}

func (m *mockCartSvc) AddItem(_ context.Context, owner string, _ *models.AddCartItemRequest) (*models.CartView, error) {
	return m.view, m.err
}

func (m *mockCartSvc) RemoveItem(_ context.Context, owner string, _ uuid.UUID) (*models.CartView, error) {
	return m.view, m.err
}

func (m *mockCartSvc) ClearCart(_ context.Context, owner string) error {
	return m.err
}

type mockOrderSvc struct {
	order         *models.Order
	orders        []models.Order
	discrepancies []models.StockDiscrepancy
	discrepancy   *models.StockDiscrepancy
	err           error
	gotOpenOnly   bool
	gotStatus     models.OrderStatus
	gotResolver   string
}

func (m *mockOrderSvc) ListOrders(_ context.Context, _ string, _, _ int) ([]models.Order, int64, error) {
	return m.orders, int64(len(m.orders)), m.err
}

func (m *mockOrderSvc) GetOrder(_ context.Context, _ string, _ uuid.UUID) (*models.Order, error) {
	return m.order, m.err
}

func (m *mockOrderSvc) AdvanceStatus(_ context.Context, _ uuid.UUID, next models.OrderStatus) (*models.Order, error) {
	m.gotStatus = next
	return m.order, m.err
}

func (m *mockOrderSvc) ListDiscrepancies(_ context.Context, openOnly bool, _, _ int) ([]models.StockDiscrepancy, int64, error) {
	m.gotOpenOnly = openOnly
	return m.discrepancies, int64(len(m.discrepancies)), m.err
}

func (m *mockOrderSvc) ResolveDiscrepancy(_ context.Context, _ uuid.UUID, by string) (*models.StockDiscrepancy, error) {
	m.gotResolver = by
	return m.discrepancy, m.err
}
