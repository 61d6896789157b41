package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pharmacy-portal/internal/async"
	"pharmacy-portal/internal/config"
	"pharmacy-portal/internal/logger"
	"pharmacy-portal/internal/metrics"
	"pharmacy-portal/internal/model"
	"pharmacy-portal/internal/pricing"
	"pharmacy-portal/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const confirmationTimeout = 30 * time.Second

// Reconciler turns a settled payment into an order. It is safe to run
// any number of times for the same payment intent.
type Reconciler interface {
	HandleSucceeded(ctx context.Context, intent *model.PaymentIntent) (*model.Order, error)
	HandlePaymentFailed(ctx context.Context, intent *model.PaymentIntent) error
}

type reconcilerImpl struct {
	cartRepo      repository.CartRepository
	orderRepo     repository.OrderRepository
	inventoryRepo repository.InventoryRepository
	writer        *orderWriter
	notifier      Notifier
	runner        *async.Runner
	paymentCfg    config.Payment
	metrics       *metrics.Metrics
	log           *zap.Logger
}

func NewReconciler(
	cartRepo repository.CartRepository,
	orderRepo repository.OrderRepository,
	inventoryRepo repository.InventoryRepository,
	notifier Notifier,
	runner *async.Runner,
	paymentCfg config.Payment,
	m *metrics.Metrics,
	log *zap.Logger,
) Reconciler {
	return &reconcilerImpl{
		cartRepo:      cartRepo,
		orderRepo:     orderRepo,
		inventoryRepo: inventoryRepo,
		writer:        newOrderWriter(orderRepo, m, log),
		notifier:      notifier,
		runner:        runner,
		paymentCfg:    paymentCfg,
		metrics:       m,
		log:           log,
	}
}

func (r *reconcilerImpl) anomaly(log *zap.Logger, kind string, sentinel error) error {
	r.metrics.ReconcileAnomalies.WithLabelValues(kind).Inc()
	log.Error("data integrity anomaly", zap.String("anomaly", kind), zap.Error(sentinel))
	return newError(KindDataIntegrity, sentinel.Error(), sentinel)
}

func (r *reconcilerImpl) HandleSucceeded(ctx context.Context, intent *model.PaymentIntent) (*model.Order, error) {
	log := logger.FromContext(ctx, r.log).With(zap.String("payment_reference", intent.ID))

	userID := intent.Metadata["user_id"]
	if userID == "" {
		return nil, r.anomaly(log, "missing_context", ErrMissingContext)
	}
	log = log.With(zap.String("user_id", userID))
	ctx = logger.WithContext(ctx, log)

	existing, err := r.orderRepo.FindByPaymentReference(ctx, intent.ID)
	if err == nil {
		log.Info("payment already reconciled, skipping", zap.Uint("order_id", existing.ID))
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, internalError("look up order", err)
	}

	lines, err := r.cartRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, internalError("load cart", err)
	}
	if len(lines) == 0 {
		return nil, r.anomaly(log, "empty_cart_at_settlement", ErrEmptyCartAtSettlement)
	}

	totals := r.settledTotals(log, intent, lines)
	r.checkChargedAmount(log, intent, totals)

	order, created, err := r.writer.Materialize(ctx, materializeInput{
		UserID:           userID,
		PaymentReference: intent.ID,
		Customer:         customerFromMetadata(intent),
		Totals:           totals,
		Currency:         currencyOf(intent, r.paymentCfg.Currency),
		PaymentStatus:    model.PaymentStatusPaid,
		OrderStatus:      model.OrderStatusProcessing,
		Source:           model.OrderSourceWebhook,
		Lines:            lines,
	})
	if err != nil {
		log.Error("failed to create order", zap.Error(err))
		return nil, err
	}
	if !created {
		return order, nil
	}

	r.decrementStock(ctx, log, lines)

	if _, err := r.cartRepo.ClearByUser(ctx, userID); err != nil {
		log.Error("failed to clear cart", zap.Error(err))
	}

	r.runner.Go("order-confirmation", func() {
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), confirmationTimeout)
		defer cancel()
		if err := r.notifier.SendOrderConfirmation(sendCtx, order); err != nil {
			log.Warn("order confirmation not sent", zap.String("order_number", order.OrderNumber), zap.Error(err))
		}
	})

	return order, nil
}

// decrementStock runs one decrement per catalog line concurrently and waits
// for all of them. A failed line never blocks the others.
func (r *reconcilerImpl) decrementStock(ctx context.Context, log *zap.Logger, lines []*model.CartItem) {
	var tasks []async.Task
	for _, line := range lines {
		if line.ProductID == nil {
			continue
		}
		productID, quantity := *line.ProductID, line.Quantity
		tasks = append(tasks, async.Task{
			Name: fmt.Sprintf("product:%d", productID),
			Fn: func(ctx context.Context) error {
				return r.decrementLine(ctx, log.With(zap.Uint("product_id", productID)), productID, quantity)
			},
		})
	}

	for _, res := range async.Failed(async.Settle(ctx, tasks...)) {
		log.Error("stock decrement failed", zap.String("task", res.Name), zap.Error(res.Err))
	}
}

func (r *reconcilerImpl) decrementLine(ctx context.Context, log *zap.Logger, productID uint, quantity int) error {
	rows, err := r.inventoryRepo.DecrementClamped(ctx, productID, quantity)
	if err != nil {
		log.Warn("atomic stock decrement failed, falling back to read-then-write", zap.Error(err))
		r.metrics.StockFallbacks.Inc()
		if err := r.inventoryRepo.DecrementReadWrite(ctx, productID, quantity); err != nil {
			return fmt.Errorf("fallback decrement: %w", err)
		}
	} else if rows == 0 {
		log.Warn("product not found while decrementing stock")
		return nil
	}

	if err := r.inventoryRepo.MarkOutOfStockIfEmpty(ctx, productID); err != nil {
		log.Warn("failed to update out-of-stock status", zap.Error(err))
	}
	return nil
}

func (r *reconcilerImpl) HandlePaymentFailed(ctx context.Context, intent *model.PaymentIntent) error {
	log := logger.FromContext(ctx, r.log).With(
		zap.String("payment_reference", intent.ID),
		zap.String("user_id", intent.Metadata["user_id"]),
	)
	if intent.LastPaymentError != nil {
		log = log.With(zap.String("failure_message", intent.LastPaymentError.Message))
	}

	rows, err := r.orderRepo.MarkPaymentFailed(ctx, intent.ID)
	if err != nil {
		return internalError("mark order failed", err)
	}
	if rows == 0 {
		log.Info("payment failed, no unpaid order for reference")
		return nil
	}
	log.Info("order cancelled after failed payment")
	return nil
}

// settledTotals reads the priced snapshot embedded at intent creation. When
// it is missing the cart is priced again with the current configuration.
func (r *reconcilerImpl) settledTotals(log *zap.Logger, intent *model.PaymentIntent, lines []*model.CartItem) model.Totals {
	meta := intent.Metadata
	parts := make([]decimal.Decimal, 4)
	for i, key := range []string{"subtotal", "tax", "shipping", "discount"} {
		v, err := decimal.NewFromString(meta[key])
		if err != nil {
			log.Warn("intent metadata has no usable totals, repricing cart", zap.String("field", key))
			return cartTotals(lines, r.paymentCfg)
		}
		parts[i] = v
	}

	totals := model.Totals{
		Subtotal: parts[0],
		Tax:      parts[1],
		Shipping: parts[2],
		Discount: parts[3],
	}
	totals.Total = totals.Subtotal.Add(totals.Tax).Add(totals.Shipping).Sub(totals.Discount)
	if declared, err := decimal.NewFromString(meta["total"]); err == nil && !declared.Equal(totals.Total) {
		log.Warn("intent metadata total disagrees with its parts",
			zap.String("declared", declared.String()),
			zap.String("computed", totals.Total.String()),
		)
	}
	return totals
}

// checkChargedAmount compares what the processor charged with the total being
// recorded. The payment already happened, so a mismatch is flagged for review
// and never blocks the order.
func (r *reconcilerImpl) checkChargedAmount(log *zap.Logger, intent *model.PaymentIntent, totals model.Totals) {
	if intent.Amount <= 0 {
		return
	}
	charged := pricing.FromMinorUnits(intent.Amount)
	if charged.Equal(totals.Total.Round(2)) {
		return
	}
	r.metrics.ReconcileAnomalies.WithLabelValues("charged_amount_mismatch").Inc()
	log.Error("charged amount differs from order total",
		zap.String("charged", charged.StringFixed(2)),
		zap.String("order_total", totals.Total.StringFixed(2)),
	)
}

func customerFromMetadata(intent *model.PaymentIntent) customer {
	meta := intent.Metadata
	email := meta["customer_email"]
	if email == "" {
		email = intent.ReceiptEmail
	}
	return customer{
		Email: email,
		Name:  meta["customer_name"],
		Phone: meta["customer_phone"],
		Shipping: model.ShippingAddress{
			Line1:      meta["shipping_line1"],
			Line2:      meta["shipping_line2"],
			City:       meta["shipping_city"],
			State:      meta["shipping_state"],
			PostalCode: meta["shipping_postal_code"],
			Country:    meta["shipping_country"],
		},
	}
}

func currencyOf(intent *model.PaymentIntent, fallback string) string {
	if intent.Currency != "" {
		return intent.Currency
	}
	return fallback
}
