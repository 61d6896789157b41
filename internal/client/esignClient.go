package client

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"pharmacy-portal/internal/config"
)

const ESignSignatureHeader = "X-Esign-Signature"

var ErrInvalidESignSignature = errors.New("invalid e-sign signature")

type ESignClient interface {
	Enabled() bool
	CreateSubmission(ctx context.Context, req *CreateSubmissionRequest) (*CreateSubmissionResponse, error)
	VerifyWebhookSignature(headers http.Header, body []byte) error
}

type CreateSubmissionRequest struct {
	Name  string
	Email string
}

type CreateSubmissionResponse struct {
	SubmissionID string
	SubmitterID  string
}

type esignSubmitter struct {
	ID           int64  `json:"id"`
	SubmissionID int64  `json:"submission_id"`
	Email        string `json:"email"`
}

type esignClientImpl struct {
	httpClient    *http.Client
	baseApiURL    string
	apiKey        string
	templateID    int64
	webhookSecret string
}

func NewESignClient(esignCfg *config.ESign) ESignClient {
	return &esignClientImpl{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseApiURL:    strings.TrimRight(esignCfg.BaseApiURL, "/"),
		apiKey:        esignCfg.APIKey,
		templateID:    esignCfg.TemplateID,
		webhookSecret: esignCfg.WebhookSecret,
	}
}

func (c *esignClientImpl) Enabled() bool {
	return c.baseApiURL != "" && c.apiKey != "" && c.templateID != 0
}

func (c *esignClientImpl) CreateSubmission(ctx context.Context, in *CreateSubmissionRequest) (*CreateSubmissionResponse, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("e-sign client not configured")
	}
	payload := map[string]interface{}{
		"template_id": c.templateID,
		"send_email":  true,
		"submitters": []map[string]string{
			{"role": "Provider", "name": in.Name, "email": in.Email},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal submission payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseApiURL+"/submissions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("http new request: %w", err)
	}
	req.Header.Set("X-Auth-Token", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("e-sign request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("e-sign error %d: %s", resp.StatusCode, string(b))
	}

	// the API answers with the list of submitters it created
	var submitters []esignSubmitter
	if err := json.NewDecoder(resp.Body).Decode(&submitters); err != nil {
		return nil, fmt.Errorf("decode e-sign response: %w", err)
	}
	if len(submitters) == 0 {
		return nil, fmt.Errorf("e-sign response has no submitters")
	}

	return &CreateSubmissionResponse{
		SubmissionID: fmt.Sprint(submitters[0].SubmissionID),
		SubmitterID:  fmt.Sprint(submitters[0].ID),
	}, nil
}

func (c *esignClientImpl) VerifyWebhookSignature(headers http.Header, body []byte) error {
	if c.webhookSecret == "" {
		return fmt.Errorf("%w: webhook secret not configured", ErrInvalidESignSignature)
	}
	got := headers.Get(ESignSignatureHeader)
	if got == "" {
		return fmt.Errorf("%w: missing %s header", ErrInvalidESignSignature, ESignSignatureHeader)
	}
	if !hmac.Equal([]byte(strings.ToLower(got)), []byte(SignESignPayload(c.webhookSecret, body))) {
		return ErrInvalidESignSignature
	}
	return nil
}

func SignESignPayload(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
