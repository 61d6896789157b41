package service

import (
	"context"
	"fmt"
	"strings"

	"pharmacy-portal/internal/async"
	"pharmacy-portal/internal/client"
	"pharmacy-portal/internal/metrics"
	"pharmacy-portal/internal/model"

	"go.uber.org/zap"
)

const (
	notifyOrderConfirmation = "order_confirmation"
	notifySubmitterReceipt  = "submitter_receipt"
	notifyModeratorNotice   = "moderator_notice"
)

// Notifier sends plain-text transactional email. Every method is best
// effort: callers log failures and never surface them to the customer.
type Notifier interface {
	SendOrderConfirmation(ctx context.Context, order *model.Order) error
	SendFormReceipts(ctx context.Context, submission *model.FormSubmission, submitterEmail string) []async.Result
}

type notifierImpl struct {
	emailClient      client.EmailClient
	moderatorAddress string
	metrics          *metrics.Metrics
	log              *zap.Logger
}

func NewNotifier(emailClient client.EmailClient, moderatorAddress string, m *metrics.Metrics, log *zap.Logger) Notifier {
	return &notifierImpl{
		emailClient:      emailClient,
		moderatorAddress: moderatorAddress,
		metrics:          m,
		log:              log,
	}
}

func (n *notifierImpl) SendOrderConfirmation(ctx context.Context, order *model.Order) error {
	if order.CustomerEmail == "" {
		err := fmt.Errorf("order %s has no customer email", order.OrderNumber)
		n.metrics.ObserveNotification(notifyOrderConfirmation, err)
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Thank you for your order %s.\n\n", order.OrderNumber)
	for _, item := range order.Items {
		fmt.Fprintf(&b, "%d x %s  %s\n", item.Quantity, item.ProductName, item.TotalPrice.StringFixed(2))
	}
	fmt.Fprintf(&b, "\nSubtotal: %s\n", order.Subtotal.StringFixed(2))
	fmt.Fprintf(&b, "Tax: %s\n", order.TaxAmount.StringFixed(2))
	fmt.Fprintf(&b, "Shipping: %s\n", order.ShippingCost.StringFixed(2))
	if order.DiscountAmount.IsPositive() {
		fmt.Fprintf(&b, "Discount: -%s\n", order.DiscountAmount.StringFixed(2))
	}
	fmt.Fprintf(&b, "Total: %s %s\n", order.TotalAmount.StringFixed(2), strings.ToUpper(order.Currency))

	err := n.emailClient.Send(ctx, &client.EmailMessage{
		To:      order.CustomerEmail,
		Subject: "Order confirmation " + order.OrderNumber,
		Text:    b.String(),
	})
	n.metrics.ObserveNotification(notifyOrderConfirmation, err)
	if err != nil {
		return fmt.Errorf("send order confirmation: %w", err)
	}
	n.log.Debug("order confirmation sent", zap.String("order_number", order.OrderNumber))
	return nil
}

// SendFormReceipts emails the submitter and the moderator in parallel and
// reports one result per email.
func (n *notifierImpl) SendFormReceipts(ctx context.Context, submission *model.FormSubmission, submitterEmail string) []async.Result {
	formName := strings.ReplaceAll(string(submission.FormType), "_", " ")

	tasks := []async.Task{
		{
			Name: notifyModeratorNotice,
			Fn: func(ctx context.Context) error {
				return n.emailClient.Send(ctx, &client.EmailMessage{
					To:      n.moderatorAddress,
					Subject: fmt.Sprintf("New %s submission #%d", formName, submission.ID),
					Text: fmt.Sprintf("Submission #%d (%s) from user %s is waiting for review.",
						submission.ID, formName, submission.UserID),
				})
			},
		},
	}
	if submitterEmail != "" {
		tasks = append(tasks, async.Task{
			Name: notifySubmitterReceipt,
			Fn: func(ctx context.Context) error {
				return n.emailClient.Send(ctx, &client.EmailMessage{
					To:      submitterEmail,
					Subject: "We received your " + formName + " form",
					Text: fmt.Sprintf("Your submission #%d was received and will be reviewed by our pharmacy team.",
						submission.ID),
				})
			},
		})
	}

	results := async.Settle(ctx, tasks...)
	for _, r := range results {
		n.metrics.ObserveNotification(r.Name, r.Err)
	}
	return results
}
