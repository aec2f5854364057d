package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	awspkg "github.com/yashrajoria/storefront-checkout/pkg/aws"
	"github.com/yashrajoria/storefront-checkout/services/checkout-service/models"
	"github.com/yashrajoria/storefront-checkout/services/checkout-service/repository"
	"github.com/yashrajoria/storefront-checkout/services/common/logger"
	"go.uber.org/zap"
)

// Outcome is how a completed-payment event was settled. Every outcome is a
// success from the provider's point of view.
type Outcome string

const (
	OutcomeCreated        Outcome = "created"
	OutcomeDuplicate      Outcome = "duplicate"
	OutcomeAbortEmptyCart Outcome = "aborted_empty_cart"
)

// ReconcileResult reports what happened for one session.
type ReconcileResult struct {
	Outcome        Outcome
	OrderID        uuid.UUID
	StockShortfall bool
	AmountMismatch bool
}

// Reconciler materializes orders from completed checkout sessions.
type Reconciler interface {
	Reconcile(ctx context.Context, ev CheckoutCompleted) (*ReconcileResult, error)
}

type reconcilerImpl struct {
	orders    repository.OrderRepository
	carts     repository.CartRepository
	products  repository.ProductRepository
	snapshots repository.SnapshotStore
	publisher OrderEventPublisher
	currency  string
	metrics   MetricsRecorder
	logger    *zap.Logger
}

func NewReconciler(
	orders repository.OrderRepository,
	carts repository.CartRepository,
	products repository.ProductRepository,
	snapshots repository.SnapshotStore,
	publisher OrderEventPublisher,
	currency string,
	metrics MetricsRecorder,
	logger *zap.Logger,
) Reconciler {
	return &reconcilerImpl{
		orders:    orders,
		carts:     carts,
		products:  products,
		snapshots: snapshots,
		publisher: publisher,
		currency:  currency,
		metrics:   metrics,
		logger:    logger,
	}
}

// Reconcile runs UNSEEN -> MATERIALIZING -> MATERIALIZED for one session.
// Any number of deliveries, sequential or concurrent, yield one order: the
// lookup below is a shortcut and the unique key on external_session_id
// decides races. Storage errors are returned so the event is redelivered.
func (r *reconcilerImpl) Reconcile(ctx context.Context, ev CheckoutCompleted) (*ReconcileResult, error) {
	sess := ev.Session
	ownerID := sess.OwnerID()
	log := logger.For(ctx, r.logger).With(
		zap.String("session_id", sess.ID),
		zap.String("user_id", ownerID),
		zap.String("event_id", ev.ID),
	)

	existing, err := r.orders.FindByExternalSessionID(ctx, sess.ID)
	switch {
	case err == nil:
		log.Info("order already materialized", zap.String("order_id", existing.ID.String()), zap.Error(ErrDuplicateEvent))
		countAsync(r.metrics, r.logger, awspkg.MetricWebhookDuplicates)
		return &ReconcileResult{Outcome: OutcomeDuplicate, OrderID: existing.ID}, nil
	case !errors.Is(err, repository.ErrNotFound):
		return nil, ErrInternal.Wrap(err)
	}

	cartItems, err := r.carts.ListItems(ctx, ownerID)
	if err != nil {
		return nil, ErrInternal.Wrap(err)
	}
	if len(cartItems) == 0 {
		log.Warn("cart empty at reconciliation, no order created")
		countAsync(r.metrics, r.logger, awspkg.MetricReconcileAborted)
		return &ReconcileResult{Outcome: OutcomeAbortEmptyCart}, nil
	}

	lines, source, err := r.resolveLines(ctx, log, sess.ID, cartItems)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		log.Warn("no purchasable lines at reconciliation, no order created")
		countAsync(r.metrics, r.logger, awspkg.MetricReconcileAborted)
		return &ReconcileResult{Outcome: OutcomeAbortEmptyCart}, nil
	}

	order := buildOrder(sess, ownerID, r.currency, lines, source)
	mismatch := order.TotalAmount != sess.AmountTotal
	if mismatch {
		log.Error("order total differs from amount charged",
			zap.Int64("total_amount", order.TotalAmount),
			zap.Int64("provider_amount", sess.AmountTotal),
			zap.String("line_source", source),
		)
		countAsync(r.metrics, r.logger, awspkg.MetricAmountMismatch)
	}

	res, err := r.orders.Materialize(ctx, repository.Materialization{Order: order, CartOwner: ownerID})
	if err != nil {
		log.Error("materialization failed", zap.Error(err))
		return nil, ErrInternal.Wrap(err)
	}
	if !res.Created {
		log.Info("concurrent delivery materialized the order first", zap.Error(ErrDuplicateEvent))
		countAsync(r.metrics, r.logger, awspkg.MetricWebhookDuplicates)
		return &ReconcileResult{Outcome: OutcomeDuplicate}, nil
	}

	for _, d := range res.Discrepancies {
		log.Warn("stock decrement skipped",
			zap.String("order_id", order.ID.String()),
			zap.String("variant_id", d.VariantID.String()),
			zap.Int("requested", d.Requested),
			zap.Int("available", d.Available),
			zap.String("reason", d.Reason),
			zap.Error(ErrInsufficientStock),
		)
	}

	r.afterCommit(ctx, log, order, res)

	log.Info("order materialized",
		zap.String("order_id", order.ID.String()),
		zap.Int64("total_amount", order.TotalAmount),
		zap.Int("items", len(order.Items)),
		zap.Bool("stock_shortfall", order.StockShortfall),
		zap.Int64("cart_lines_cleared", res.CartLinesCleared),
	)
	return &ReconcileResult{
		Outcome:        OutcomeCreated,
		OrderID:        order.ID,
		StockShortfall: order.StockShortfall,
		AmountMismatch: mismatch,
	}, nil
}

// resolveLines prefers the snapshot taken when the session was created,
// which is what the customer was charged for. Without one the live cart is
// re-priced and the order is marked as such.
func (r *reconcilerImpl) resolveLines(ctx context.Context, log *zap.Logger, sessionID string, cartItems []models.CartItem) ([]models.PricedLine, string, error) {
	priced, err := priceCart(ctx, r.products, cartItems)
	if err != nil {
		return nil, "", ErrInternal.Wrap(err)
	}

	snap, err := r.snapshots.Get(ctx, sessionID)
	switch {
	case err == nil:
		if !sameLines(snap.Lines, priced.lines) || len(priced.unavailable) > 0 {
			log.Warn("cart changed after checkout, materializing the charged snapshot",
				zap.Int("snapshot_lines", len(snap.Lines)),
				zap.Int("cart_lines", len(cartItems)),
			)
		}
		return snap.Lines, models.LineSourceSnapshot, nil
	case errors.Is(err, repository.ErrNotFound):
		log.Warn("checkout snapshot missing, falling back to live cart")
	default:
		// The snapshot is an ephemeral aid; an unreadable one should not
		// block a paid order.
		log.Error("checkout snapshot unreadable, falling back to live cart", zap.Error(err))
	}

	if len(priced.unavailable) > 0 {
		log.Warn("cart lines unavailable at reconciliation", zap.Int("unavailable", len(priced.unavailable)))
	}
	return priced.lines, models.LineSourceLiveCart, nil
}

func buildOrder(sess SessionPayload, ownerID, currency string, lines []models.PricedLine, source string) *models.Order {
	order := &models.Order{
		ID:                uuid.New(),
		UserID:            ownerID,
		TotalAmount:       models.LinesTotal(lines),
		ProviderAmount:    sess.AmountTotal,
		Currency:          currency,
		Status:            models.OrderStatusPaid,
		CustomerEmail:     sess.Email(),
		ExternalSessionID: sess.ID,
		LineSource:        source,
	}
	if sess.Currency != "" {
		order.Currency = strings.ToLower(sess.Currency)
	}
	if addr := sess.Shipping(); addr != nil {
		order.Shipping = *addr
	}
	for _, l := range lines {
		order.Items = append(order.Items, models.OrderItem{
			ID:           uuid.New(),
			OrderID:      order.ID,
			ProductID:    l.ProductID,
			VariantID:    l.VariantID,
			ProductName:  l.Name,
			VariantLabel: l.VariantLabel,
			UnitPrice:    l.UnitPrice,
			Quantity:     l.Quantity,
		})
	}
	return order
}

// afterCommit runs best-effort follow-ups. The order is durable already, so
// failures here are logged only.
func (r *reconcilerImpl) afterCommit(ctx context.Context, log *zap.Logger, order *models.Order, res *repository.MaterializeResult) {
	if err := r.snapshots.Delete(ctx, order.ExternalSessionID); err != nil {
		log.Warn("failed to delete checkout snapshot", zap.Error(err))
	}

	countAsync(r.metrics, r.logger, awspkg.MetricOrdersCreated)
	if len(res.Discrepancies) > 0 {
		countAsync(r.metrics, r.logger, awspkg.MetricInventoryShortfall)
	}

	if r.publisher == nil {
		return
	}
	now := time.Now().UTC()
	if err := r.publisher.PublishOrderCreated(ctx, models.OrderCreatedEvent{
		Type:              models.EventOrderCreated,
		OrderID:           order.ID,
		UserID:            order.UserID,
		ExternalSessionID: order.ExternalSessionID,
		TotalAmount:       order.TotalAmount,
		Currency:          order.Currency,
		ItemCount:         len(order.Items),
		StockShortfall:    order.StockShortfall,
		Timestamp:         now,
	}); err != nil {
		log.Error("failed to publish order event", zap.Error(err))
	}
	if len(res.Discrepancies) > 0 {
		if err := r.publisher.PublishInventoryShortfall(ctx, models.InventoryShortfallEvent{
			Type:          models.EventInventoryShortfall,
			OrderID:       order.ID,
			Discrepancies: res.Discrepancies,
			Timestamp:     now,
		}); err != nil {
			log.Error("failed to publish shortfall event", zap.Error(err))
		}
	}
}
