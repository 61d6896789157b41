package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"pharmacy-portal/internal/config"

	"go.uber.org/zap"
)

type EmailMessage struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
}

type EmailClient interface {
	Send(ctx context.Context, msg *EmailMessage) error
}

type emailClientImpl struct {
	httpClient *http.Client
	baseApiURL string
	apiKey     string
	from       string
}

// NewEmailClient returns an HTTP API sender, or a log-only sender when no API
// key is configured.
func NewEmailClient(emailCfg *config.Email, log *zap.Logger) EmailClient {
	if emailCfg.APIKey == "" || emailCfg.BaseApiURL == "" {
		return &logEmailClient{log: log, from: emailCfg.From}
	}
	return &emailClientImpl{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseApiURL: strings.TrimRight(emailCfg.BaseApiURL, "/"),
		apiKey:     emailCfg.APIKey,
		from:       emailCfg.From,
	}
}

func (c *emailClientImpl) Send(ctx context.Context, msg *EmailMessage) error {
	if msg.To == "" {
		return fmt.Errorf("email recipient is empty")
	}
	payload := map[string]string{
		"from":    c.from,
		"to":      msg.To,
		"subject": msg.Subject,
		"text":    msg.Text,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseApiURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("http new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("email request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("email provider error %d: %s", resp.StatusCode, string(b))
	}
	return nil
}

type logEmailClient struct {
	log  *zap.Logger
	from string
}

func (c *logEmailClient) Send(ctx context.Context, msg *EmailMessage) error {
	if msg.To == "" {
		return fmt.Errorf("email recipient is empty")
	}
	c.log.Info("email not configured, logging message",
		zap.String("from", c.from),
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
	)
	return nil
}
