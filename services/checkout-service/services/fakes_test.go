package services_test

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/yashrajoria/storefront-checkout/services/checkout-service/models"
	"github.com/yashrajoria/storefront-checkout/services/checkout-service/repository"
	"github.com/yashrajoria/storefront-checkout/services/checkout-service/services"
)

// memStore is an in-memory relational store. Materialize holds the lock for
// the whole unit of work, and orders are keyed by external session id, so it
// behaves like the Postgres unique key under concurrent callers.
type memStore struct {
	mu            sync.Mutex
	products      map[uuid.UUID]models.Product
	variants      map[uuid.UUID]*models.ProductVariant
	carts         map[string][]models.CartItem
	orders        map[string]*models.Order
	discrepancies []models.StockDiscrepancy

	materializeErr error
	materializeN   int
}

func newMemStore() *memStore {
	return &memStore{
		products: map[uuid.UUID]models.Product{},
		variants: map[uuid.UUID]*models.ProductVariant{},
		carts:    map[string][]models.CartItem{},
		orders:   map[string]*models.Order{},
	}
}

func (m *memStore) addProduct(name string, price int64) models.Product {
	p := models.Product{ID: uuid.New(), Name: name, Price: price, Active: true}
	m.products[p.ID] = p
	return p
}

func (m *memStore) addVariant(productID uuid.UUID, label string, stock int) models.ProductVariant {
	v := models.ProductVariant{ID: uuid.New(), ProductID: productID, Label: label, Stock: stock}
	m.variants[v.ID] = &v
	return v
}

func (m *memStore) stock(variantID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.variants[variantID].Stock
}

func (m *memStore) orderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

func (m *memStore) onlyOrder() *models.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		return o
	}
	return nil
}

// ProductRepository

func (m *memStore) FindProducts(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[uuid.UUID]models.Product{}
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (m *memStore) FindVariants(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]models.ProductVariant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[uuid.UUID]models.ProductVariant{}
	for _, id := range ids {
		if v, ok := m.variants[id]; ok {
			out[id] = *v
		}
	}
	return out, nil
}

// CartRepository

func (m *memStore) AddItem(_ context.Context, item *models.CartItem) (*models.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lines := m.carts[item.UserID]
	for i := range lines {
		if lines[i].ProductID == item.ProductID && lines[i].VariantID == item.VariantID {
			lines[i].Quantity += item.Quantity
			stored := lines[i]
			return &stored, nil
		}
	}
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	m.carts[item.UserID] = append(lines, *item)
	stored := *item
	return &stored, nil
}

func (m *memStore) ListItems(_ context.Context, userID string) ([]models.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.CartItem(nil), m.carts[userID]...), nil
}

func (m *memStore) RemoveItem(_ context.Context, userID string, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	lines := m.carts[userID]
	for i := range lines {
		if lines[i].ID == id {
			m.carts[userID] = append(lines[:i], lines[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *memStore) Clear(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(len(m.carts[userID]))
	delete(m.carts, userID)
	return n, nil
}

// OrderRepository

func (m *memStore) FindByExternalSessionID(_ context.Context, sessionID string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o, ok := m.orders[sessionID]; ok {
		cp := *o
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (m *memStore) Materialize(_ context.Context, mat repository.Materialization) (*repository.MaterializeResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.materializeN++
	if m.materializeErr != nil {
		return nil, m.materializeErr
	}
	order := mat.Order
	if _, exists := m.orders[order.ExternalSessionID]; exists {
		return &repository.MaterializeResult{Created: false}, nil
	}

	res := &repository.MaterializeResult{Created: true}
	for _, it := range order.Items {
		if it.VariantID == uuid.Nil {
			continue
		}
		v, ok := m.variants[it.VariantID]
		if ok && v.Stock >= it.Quantity {
			v.Stock -= it.Quantity
			continue
		}
		d := models.StockDiscrepancy{ID: uuid.New(), OrderID: order.ID, ProductID: it.ProductID, VariantID: it.VariantID, Requested: it.Quantity, Reason: repository.ReasonInsufficientStock}
		if ok {
			d.Available = v.Stock
		} else {
			d.Reason = repository.ReasonVariantMissing
		}
		res.Discrepancies = append(res.Discrepancies, d)
	}
	if len(res.Discrepancies) > 0 {
		order.StockShortfall = true
		m.discrepancies = append(m.discrepancies, res.Discrepancies...)
	}
	res.CartLinesCleared = int64(len(m.carts[mat.CartOwner]))
	delete(m.carts, mat.CartOwner)

	cp := *order
	cp.Items = append([]models.OrderItem(nil), order.Items...)
	m.orders[order.ExternalSessionID] = &cp
	return res, nil
}

func (m *memStore) FindByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.ID == id {
			cp := *o
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memStore) ListByUser(_ context.Context, userID string, _, _ int) ([]models.Order, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, int64(len(out)), nil
}

func (m *memStore) AdvanceStatus(_ context.Context, id uuid.UUID, next models.OrderStatus) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.ID == id {
			if !o.Status.CanAdvanceTo(next) {
				cp := *o
				return &cp, repository.ErrInvalidTransition
			}
			o.Status = next
			cp := *o
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

// memSnapshots implements repository.SnapshotStore.
type memSnapshots struct {
	mu      sync.Mutex
	data    map[string]models.CheckoutSnapshot
	saveErr error
	getErr  error
}

func newMemSnapshots() *memSnapshots {
	return &memSnapshots{data: map[string]models.CheckoutSnapshot{}}
}

func (s *memSnapshots) Save(_ context.Context, snap *models.CheckoutSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.data[snap.SessionID] = *snap
	return nil
}

func (s *memSnapshots) Get(_ context.Context, sessionID string) (*models.CheckoutSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	snap, ok := s.data[sessionID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &snap, nil
}

func (s *memSnapshots) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sessionID)
	return nil
}

func (s *memSnapshots) has(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data[sessionID]
	return ok
}

// fakeProvider mimics hosted sessions: created open/unpaid, completed by the
// test, looked up by id.
type fakeProvider struct {
	mu        sync.Mutex
	sessions  map[string]services.SessionPayload
	requests  []services.SessionRequest
	createErr error
	getErr    error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{sessions: map[string]services.SessionPayload{}}
}

func (p *fakeProvider) CreateSession(_ context.Context, req services.SessionRequest) (*services.HostedSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.createErr != nil {
		return nil, p.createErr
	}
	p.requests = append(p.requests, req)
	id := fmt.Sprintf("cs_test_%d", len(p.requests))
	p.sessions[id] = services.SessionPayload{
		ID:            id,
		Status:        "open",
		PaymentStatus: "unpaid",
		AmountTotal:   models.LinesTotal(req.Lines),
		Currency:      req.Currency,
		CustomerEmail: req.CustomerEmail,
		Metadata:      map[string]string{"user_id": req.OwnerID},
	}
	return &services.HostedSession{ID: id, URL: "https://checkout.example.test/" + id}, nil
}

func (p *fakeProvider) GetSession(_ context.Context, sessionID string) (*services.SessionPayload, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.getErr != nil {
		return nil, p.getErr
	}
	s, ok := p.sessions[sessionID]
	if !ok {
		return nil, services.ErrSessionNotFound
	}
	return &s, nil
}

// complete marks the session paid and returns the event the provider sends.
func (p *fakeProvider) complete(sessionID string) services.CheckoutCompleted {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.sessions[sessionID]
	s.Status = "complete"
	s.PaymentStatus = "paid"
	p.sessions[sessionID] = s
	return services.CheckoutCompleted{ID: "evt_" + sessionID, Type: services.EventCheckoutCompleted, Session: s}
}

type recordingPublisher struct {
	mu        sync.Mutex
	created   []models.OrderCreatedEvent
	shortfall []models.InventoryShortfallEvent
}

func (p *recordingPublisher) PublishOrderCreated(_ context.Context, ev models.OrderCreatedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.created = append(p.created, ev)
	return nil
}

func (p *recordingPublisher) PublishInventoryShortfall(_ context.Context, ev models.InventoryShortfallEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shortfall = append(p.shortfall, ev)
	return nil
}
