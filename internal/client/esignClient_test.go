package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"pharmacy-portal/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSubmission(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/submissions", r.URL.Path)
		assert.Equal(t, "tok", r.Header.Get("X-Auth-Token"))
		var payload map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.EqualValues(t, 7, payload["template_id"])
		w.Write([]byte(`[{"id":55,"submission_id":901,"email":"doc@clinic.test"}]`))
	}))
	defer srv.Close()

	c := NewESignClient(&config.ESign{BaseApiURL: srv.URL, APIKey: "tok", TemplateID: 7})
	require.True(t, c.Enabled())
	resp, err := c.CreateSubmission(context.Background(), &CreateSubmissionRequest{Name: "Dr Who", Email: "doc@clinic.test"})
	require.NoError(t, err)
	assert.Equal(t, "901", resp.SubmissionID)
	assert.Equal(t, "55", resp.SubmitterID)
}

func TestCreateSubmissionDisabled(t *testing.T) {
	c := NewESignClient(&config.ESign{})
	assert.False(t, c.Enabled())
	_, err := c.CreateSubmission(context.Background(), &CreateSubmissionRequest{})
	assert.Error(t, err)
}

func TestVerifyESignSignature(t *testing.T) {
	c := NewESignClient(&config.ESign{WebhookSecret: "s3"})
	body := []byte(`{"event_type":"form.viewed"}`)

	h := http.Header{}
	h.Set(ESignSignatureHeader, SignESignPayload("s3", body))
	assert.NoError(t, c.VerifyWebhookSignature(h, body))

	h.Set(ESignSignatureHeader, SignESignPayload("other", body))
	assert.ErrorIs(t, c.VerifyWebhookSignature(h, body), ErrInvalidESignSignature)

	assert.ErrorIs(t, c.VerifyWebhookSignature(http.Header{}, body), ErrInvalidESignSignature)
}
