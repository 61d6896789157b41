package client

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"pharmacy-portal/internal/config"
)

const (
	PaymentSignatureHeader = "Payment-Signature"
	signatureTolerance     = 5 * time.Minute
)

var ErrInvalidPaymentSignature = errors.New("invalid payment signature")

type PaymentClient interface {
	CreatePaymentIntent(ctx context.Context, req *CreateIntentRequest) (*CreateIntentResponse, error)
	VerifyWebhookSignature(headers http.Header, body []byte) error
}

type CreateIntentRequest struct {
	Amount       int64
	Currency     string
	ReceiptEmail string
	Metadata     map[string]string
}

type CreateIntentResponse struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
}

type paymentClientImpl struct {
	httpClient    *http.Client
	baseApiURL    string
	secretKey     string
	webhookSecret string
	now           func() time.Time
}

func NewPaymentClient(paymentCfg *config.Payment) PaymentClient {
	return &paymentClientImpl{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseApiURL:    strings.TrimRight(paymentCfg.BaseApiURL, "/"),
		secretKey:     paymentCfg.SecretKey,
		webhookSecret: paymentCfg.WebhookSecret,
		now:           time.Now,
	}
}

func (c *paymentClientImpl) CreatePaymentIntent(ctx context.Context, in *CreateIntentRequest) (*CreateIntentResponse, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(in.Amount, 10))
	form.Set("currency", in.Currency)
	form.Set("automatic_payment_methods[enabled]", "true")
	if in.ReceiptEmail != "" {
		form.Set("receipt_email", in.ReceiptEmail)
	}
	keys := make([]string, 0, len(in.Metadata))
	for k := range in.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		form.Set("metadata["+k+"]", in.Metadata[k])
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseApiURL+"/v1/payment_intents",
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("http new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("payment intent request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("payment processor error %d: %s", resp.StatusCode, string(b))
	}

	var result CreateIntentResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode payment intent response: %w", err)
	}
	if result.ID == "" || result.ClientSecret == "" {
		return nil, fmt.Errorf("payment intent response missing id or client secret")
	}

	return &result, nil
}

// VerifyWebhookSignature checks "t=<unix>,v1=<hex>" where v1 is
// HMAC-SHA256(secret, t + "." + body). Several v1 entries may be present
// while a secret is being rolled.
func (c *paymentClientImpl) VerifyWebhookSignature(headers http.Header, body []byte) error {
	if c.webhookSecret == "" {
		return fmt.Errorf("%w: webhook secret not configured", ErrInvalidPaymentSignature)
	}
	header := headers.Get(PaymentSignatureHeader)
	if header == "" {
		return fmt.Errorf("%w: missing %s header", ErrInvalidPaymentSignature, PaymentSignatureHeader)
	}

	var timestamp string
	var signatures []string
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			timestamp = v
		case "v1":
			signatures = append(signatures, v)
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return fmt.Errorf("%w: malformed header", ErrInvalidPaymentSignature)
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: bad timestamp", ErrInvalidPaymentSignature)
	}
	age := c.now().Sub(time.Unix(ts, 0))
	if age > signatureTolerance || age < -signatureTolerance {
		return fmt.Errorf("%w: timestamp outside tolerance", ErrInvalidPaymentSignature)
	}

	expected := SignPayload(c.webhookSecret, timestamp, body)
	for _, sig := range signatures {
		if hmac.Equal([]byte(sig), []byte(expected)) {
			return nil
		}
	}
	return fmt.Errorf("%w: no matching signature", ErrInvalidPaymentSignature)
}

// SignPayload returns the hex v1 signature for timestamp and body.
func SignPayload(secret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// SignatureHeader builds a header value the way the processor does.
func SignatureHeader(secret string, at time.Time, body []byte) string {
	ts := strconv.FormatInt(at.Unix(), 10)
	return "t=" + ts + ",v1=" + SignPayload(secret, ts, body)
}
