package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type WebhookSource string

const (
	WebhookSourcePayment WebhookSource = "payment"
	WebhookSourceESign   WebhookSource = "esign"
)

type WebhookEvent struct {
	EventID     string        `gorm:"primaryKey;size:128;not null"`
	Source      WebhookSource `gorm:"size:16;index;not null"`
	EventType   string        `gorm:"size:64;index"`
	ProcessedAt time.Time
	CreatedAt   time.Time
}

const (
	EventPaymentIntentSucceeded = "payment_intent.succeeded"
	EventPaymentIntentFailed    = "payment_intent.payment_failed"
)

// PaymentEvent is the processor's webhook envelope.
type PaymentEvent struct {
	ID      string           `json:"id"`
	Type    string           `json:"type"`
	Created int64            `json:"created"`
	Data    PaymentEventData `json:"data"`
}

type PaymentEventData struct {
	Object PaymentIntent `json:"object"`
}

type PaymentIntent struct {
	ID               string            `json:"id"`
	Amount           int64             `json:"amount"`
	Currency         string            `json:"currency"`
	Status           string            `json:"status"`
	ReceiptEmail     string            `json:"receipt_email"`
	Metadata         map[string]string `json:"metadata"`
	LastPaymentError *PaymentError     `json:"last_payment_error,omitempty"`
}

type PaymentError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Totals is the priced snapshot of a cart.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Shipping decimal.Decimal `json:"shipping"`
	Discount decimal.Decimal `json:"discount"`
	Total    decimal.Decimal `json:"total"`
}

// ESignEvent is the e-signature service's webhook envelope.
type ESignEvent struct {
	EventType string         `json:"event_type"`
	Timestamp string         `json:"timestamp"`
	Data      ESignEventData `json:"data"`
}

// ESignEventData is a submission for submission.* events and a submitter for
// form.* events.
type ESignEventData struct {
	ID           int64            `json:"id"`
	SubmissionID int64            `json:"submission_id"`
	Email        string           `json:"email"`
	Submitters   []ESignSubmitter `json:"submitters"`
}

type ESignSubmitter struct {
	ID           int64  `json:"id"`
	SubmissionID int64  `json:"submission_id"`
	Email        string `json:"email"`
	Status       string `json:"status"`
}
