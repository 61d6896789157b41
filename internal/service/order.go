package service

import (
	"context"
	"strings"

	"pharmacy-portal/internal/config"
	"pharmacy-portal/internal/dto"
	"pharmacy-portal/internal/logger"
	"pharmacy-portal/internal/metrics"
	"pharmacy-portal/internal/model"
	"pharmacy-portal/internal/pricing"
	"pharmacy-portal/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// materializeInput is everything needed to write an order aggregate. Totals
// come from whichever source the caller trusts: the payment intent's metadata
// on settlement, the live cart for direct API orders.
type materializeInput struct {
	UserID           string
	PaymentReference string
	Customer         customer
	Totals           model.Totals
	Currency         string
	PaymentStatus    model.PaymentStatus
	OrderStatus      model.OrderStatus
	Source           model.OrderSource
	Lines            []*model.CartItem
}

type customer struct {
	Email    string
	Name     string
	Phone    string
	Shipping model.ShippingAddress
}

type orderWriter struct {
	orderRepo repository.OrderRepository
	metrics   *metrics.Metrics
	log       *zap.Logger
}

func newOrderWriter(orderRepo repository.OrderRepository, m *metrics.Metrics, log *zap.Logger) *orderWriter {
	return &orderWriter{orderRepo: orderRepo, metrics: m, log: log}
}

// Materialize inserts the order header guarded by the unique payment
// reference, then its items. It returns created=false with the existing order
// when another delivery already wrote it. Item failures are logged only.
func (w *orderWriter) Materialize(ctx context.Context, in materializeInput) (*model.Order, bool, error) {
	log := logger.FromContext(ctx, w.log).With(
		zap.String("payment_reference", in.PaymentReference),
		zap.String("user_id", in.UserID),
	)

	order := &model.Order{
		OrderNumber:      uuid.NewString(),
		UserID:           in.UserID,
		PaymentReference: in.PaymentReference,
		CustomerEmail:    in.Customer.Email,
		CustomerName:     in.Customer.Name,
		CustomerPhone:    in.Customer.Phone,
		ShippingAddress:  in.Customer.Shipping,
		Subtotal:         in.Totals.Subtotal,
		TaxAmount:        in.Totals.Tax,
		ShippingCost:     in.Totals.Shipping,
		DiscountAmount:   in.Totals.Discount,
		TotalAmount:      in.Totals.Subtotal.Add(in.Totals.Tax).Add(in.Totals.Shipping).Sub(in.Totals.Discount),
		Currency:         strings.ToLower(in.Currency),
		PaymentStatus:    in.PaymentStatus,
		OrderStatus:      in.OrderStatus,
		Source:           in.Source,
	}

	created, err := w.orderRepo.CreateIfAbsent(ctx, order)
	if err != nil {
		return nil, false, internalError("create order", err)
	}
	if !created {
		log.Info("order already exists for payment reference")
		existing, err := w.orderRepo.FindByPaymentReference(ctx, in.PaymentReference)
		if err != nil {
			return nil, false, internalError("load existing order", err)
		}
		return existing, false, nil
	}
	w.metrics.OrdersCreated.WithLabelValues(string(in.Source)).Inc()

	items := buildOrderItems(order.ID, in.Lines)
	if err := w.orderRepo.CreateOrderItems(ctx, items); err != nil {
		log.Error("failed to create order items", zap.Uint("order_id", order.ID), zap.Error(err))
	} else {
		order.Items = make([]model.OrderItem, len(items))
		for i, item := range items {
			order.Items[i] = *item
		}
	}

	log.Info("order created",
		zap.Uint("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.String("total", order.TotalAmount.StringFixed(2)),
	)
	return order, true, nil
}

func buildOrderItems(orderID uint, lines []*model.CartItem) []*model.OrderItem {
	items := make([]*model.OrderItem, 0, len(lines))
	for _, line := range lines {
		item := &model.OrderItem{
			OrderID:     orderID,
			ProductID:   line.ProductID,
			ProductName: line.DisplayName(),
			Quantity:    line.Quantity,
			UnitPrice:   line.PriceAtAdd,
			TotalPrice:  pricing.LineTotal(line.PriceAtAdd, line.Quantity),
		}
		if line.Product != nil {
			item.ProductSKU = line.Product.SKU
			item.ProductImage = line.Product.ImageURL
		}
		items = append(items, item)
	}
	return items
}

type OrderService interface {
	// Create writes a pending order from the caller's live cart. Repeating
	// the same idempotency key returns the first order.
	Create(ctx context.Context, identity Identity, idempotencyKey string, req *dto.CreateOrderRequest) (*model.Order, bool, error)
	List(ctx context.Context, userID string) ([]*model.Order, error)
	Get(ctx context.Context, userID string, orderID uint) (*model.Order, error)
}

type orderServiceImpl struct {
	cartRepo   repository.CartRepository
	orderRepo  repository.OrderRepository
	writer     *orderWriter
	paymentCfg config.Payment
}

func NewOrderService(
	cartRepo repository.CartRepository,
	orderRepo repository.OrderRepository,
	paymentCfg config.Payment,
	m *metrics.Metrics,
	log *zap.Logger,
) OrderService {
	return &orderServiceImpl{
		cartRepo:   cartRepo,
		orderRepo:  orderRepo,
		writer:     newOrderWriter(orderRepo, m, log),
		paymentCfg: paymentCfg,
	}
}

func (s *orderServiceImpl) Create(ctx context.Context, identity Identity, idempotencyKey string, req *dto.CreateOrderRequest) (*model.Order, bool, error) {
	reference := "manual_" + uuid.NewString()
	if key := strings.TrimSpace(idempotencyKey); key != "" {
		if len(key) > 100 {
			return nil, false, validationError("idempotency key is too long")
		}
		reference = "manual_" + key
		// a replay must not depend on the cart, which may have changed since
		if existing, err := s.orderRepo.FindByPaymentReference(ctx, reference); err == nil {
			if existing.UserID != identity.UserID {
				return nil, false, validationError("idempotency key already used")
			}
			return existing, false, nil
		}
	}

	lines, err := s.cartRepo.ListByUser(ctx, identity.UserID)
	if err != nil {
		return nil, false, internalError("load cart", err)
	}
	if len(lines) == 0 {
		return nil, false, newError(KindValidation, ErrEmptyCart.Error(), ErrEmptyCart)
	}

	return s.writer.Materialize(ctx, materializeInput{
		UserID:           identity.UserID,
		PaymentReference: reference,
		Customer: customer{
			Email:    identity.Email,
			Name:     req.Name,
			Phone:    req.Phone,
			Shipping: req.ShippingAddress,
		},
		Totals:        cartTotals(lines, s.paymentCfg),
		Currency:      s.paymentCfg.Currency,
		PaymentStatus: model.PaymentStatusPending,
		OrderStatus:   model.OrderStatusPending,
		Source:        model.OrderSourceAPI,
		Lines:         lines,
	})
}

func (s *orderServiceImpl) List(ctx context.Context, userID string) ([]*model.Order, error) {
	orders, err := s.orderRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, internalError("list orders", err)
	}
	return orders, nil
}

func (s *orderServiceImpl) Get(ctx context.Context, userID string, orderID uint) (*model.Order, error) {
	order, err := s.orderRepo.FindByIDForUser(ctx, userID, orderID)
	if err != nil {
		return nil, notFoundOr(err, "order")
	}
	return order, nil
}
