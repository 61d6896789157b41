package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"pharmacy-portal/internal/async"
	"pharmacy-portal/internal/client"
	"pharmacy-portal/internal/config"
	"pharmacy-portal/internal/dto"
	"pharmacy-portal/internal/logger"
	"pharmacy-portal/internal/metrics"
	"pharmacy-portal/internal/model"
	"pharmacy-portal/internal/pricing"
	"pharmacy-portal/internal/repository"

	"go.uber.org/zap"
)

type CheckoutService interface {
	CreateIntent(ctx context.Context, identity Identity, req *dto.CreateIntentRequest) (*dto.CreateIntentResponse, error)
	// ReceiveWebhook verifies and parses a processor callback, then hands it
	// to the background runner. It returns once the event is accepted.
	ReceiveWebhook(ctx context.Context, headers http.Header, body []byte) error
}

type checkoutServiceImpl struct {
	paymentClient    client.PaymentClient
	cartRepo         repository.CartRepository
	webhookEventRepo repository.WebhookEventRepository
	reconciler       Reconciler
	runner           *async.Runner
	paymentCfg       config.Payment
	metrics          *metrics.Metrics
	log              *zap.Logger
}

func NewCheckoutService(
	paymentClient client.PaymentClient,
	cartRepo repository.CartRepository,
	webhookEventRepo repository.WebhookEventRepository,
	reconciler Reconciler,
	runner *async.Runner,
	paymentCfg config.Payment,
	m *metrics.Metrics,
	log *zap.Logger,
) CheckoutService {
	return &checkoutServiceImpl{
		paymentClient:    paymentClient,
		cartRepo:         cartRepo,
		webhookEventRepo: webhookEventRepo,
		reconciler:       reconciler,
		runner:           runner,
		paymentCfg:       paymentCfg,
		metrics:          m,
		log:              log,
	}
}

func (s *checkoutServiceImpl) CreateIntent(ctx context.Context, identity Identity, req *dto.CreateIntentRequest) (*dto.CreateIntentResponse, error) {
	lines, err := s.cartRepo.ListByUser(ctx, identity.UserID)
	if err != nil {
		return nil, internalError("load cart", err)
	}
	if len(lines) == 0 {
		return nil, newError(KindValidation, ErrEmptyCart.Error(), ErrEmptyCart)
	}

	for _, line := range lines {
		if line.ProductID == nil {
			continue
		}
		if line.Product == nil {
			return nil, validationError(fmt.Sprintf("%s is no longer available", line.ItemName))
		}
		if line.Quantity > line.Product.StockQuantity {
			return nil, newError(KindValidation,
				fmt.Sprintf("insufficient stock for %s", line.Product.Name),
				ErrInsufficientStock)
		}
	}

	totals := cartTotals(lines, s.paymentCfg)
	amount := pricing.ToMinorUnits(totals.Total)
	if amount <= 0 {
		return nil, validationError("order total must be positive")
	}

	addr := req.ShippingAddress
	metadata := map[string]string{
		"user_id":              identity.UserID,
		"customer_email":       identity.Email,
		"customer_name":        req.Name,
		"customer_phone":       req.Phone,
		"subtotal":             totals.Subtotal.StringFixed(2),
		"tax":                  totals.Tax.StringFixed(2),
		"shipping":             totals.Shipping.StringFixed(2),
		"discount":             totals.Discount.StringFixed(2),
		"total":                totals.Total.StringFixed(2),
		"shipping_line1":       addr.Line1,
		"shipping_line2":       addr.Line2,
		"shipping_city":        addr.City,
		"shipping_state":       addr.State,
		"shipping_postal_code": addr.PostalCode,
		"shipping_country":     addr.Country,
	}

	resp, err := s.paymentClient.CreatePaymentIntent(ctx, &client.CreateIntentRequest{
		Amount:       amount,
		Currency:     s.paymentCfg.Currency,
		ReceiptEmail: identity.Email,
		Metadata:     metadata,
	})
	if err != nil {
		logger.FromContext(ctx, s.log).Error("create payment intent failed",
			zap.String("user_id", identity.UserID), zap.Error(err))
		return nil, newError(KindExternalService, "payment processor unavailable", err)
	}

	return &dto.CreateIntentResponse{
		ClientSecret:    resp.ClientSecret,
		PaymentIntentID: resp.ID,
		Amount:          amount,
		Currency:        s.paymentCfg.Currency,
		Totals:          totals,
	}, nil
}

func (s *checkoutServiceImpl) ReceiveWebhook(ctx context.Context, headers http.Header, body []byte) error {
	log := logger.FromContext(ctx, s.log)

	if err := s.paymentClient.VerifyWebhookSignature(headers, body); err != nil {
		log.Warn("rejected payment webhook", zap.Error(err))
		s.metrics.ObserveWebhook(string(model.WebhookSourcePayment), "unverified", err)
		return newError(KindValidation, "invalid signature", fmt.Errorf("%w: %v", ErrInvalidSignature, err))
	}

	var event model.PaymentEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return newError(KindValidation, "malformed payload", err)
	}
	if event.Type == "" {
		return validationError("malformed payload")
	}
	switch event.Type {
	case model.EventPaymentIntentSucceeded, model.EventPaymentIntentFailed:
		if strings.TrimSpace(event.Data.Object.ID) == "" {
			return validationError("malformed payload: missing payment intent id")
		}
	}

	log = log.With(
		zap.String("event_id", event.ID),
		zap.String("event_type", event.Type),
		zap.String("payment_reference", event.Data.Object.ID),
	)
	bgCtx := logger.WithContext(context.WithoutCancel(ctx), log)

	s.runner.Go("payment-webhook", func() {
		ctx, cancel := context.WithTimeout(bgCtx, s.paymentCfg.ProcessTimeout)
		defer cancel()
		err := s.processEvent(ctx, &event)
		s.metrics.ObserveWebhook(string(model.WebhookSourcePayment), event.Type, err)
		if err != nil {
			log.Error("payment webhook processing failed", zap.Error(err))
		}
	})
	return nil
}

func (s *checkoutServiceImpl) processEvent(ctx context.Context, event *model.PaymentEvent) error {
	log := logger.FromContext(ctx, s.log)

	if event.ID != "" {
		seen, err := s.webhookEventRepo.Exists(ctx, event.ID)
		if err != nil {
			log.Warn("webhook event lookup failed, processing anyway", zap.Error(err))
		} else if seen {
			log.Info("webhook event already processed")
			return nil
		}
	}

	var err error
	switch event.Type {
	case model.EventPaymentIntentSucceeded:
		_, err = s.reconciler.HandleSucceeded(ctx, &event.Data.Object)
	case model.EventPaymentIntentFailed:
		err = s.reconciler.HandlePaymentFailed(ctx, &event.Data.Object)
	default:
		log.Debug("ignoring payment event type")
		return nil
	}
	if err != nil {
		return err
	}

	if event.ID != "" {
		if err := s.webhookEventRepo.MarkProcessed(ctx, model.WebhookSourcePayment, event.ID, event.Type); err != nil {
			log.Warn("failed to record webhook event", zap.Error(err))
		}
	}
	return nil
}

// IsWebhookRejection reports whether err means the delivery itself was bad
// and the sender should be told so.
func IsWebhookRejection(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindValidation
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
