package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"pharmacy-portal/internal/async"
	"pharmacy-portal/internal/client"
	"pharmacy-portal/internal/config"
	"pharmacy-portal/internal/dto"
	"pharmacy-portal/internal/metrics"
	"pharmacy-portal/internal/middleware"
	"pharmacy-portal/internal/model"
	"pharmacy-portal/internal/repository"
	"pharmacy-portal/internal/service"
	"pharmacy-portal/internal/testdb"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const webhookSecret = "whsec_test"

// processor stands in for the payment processor's intent endpoint and keeps
// the metadata of the last intent it was asked to create.
type processor struct {
	mu       sync.Mutex
	metadata map[string]string
	amount   string
}

func (p *processor) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	md := map[string]string{}
	for k, v := range r.PostForm {
		if strings.HasPrefix(k, "metadata[") {
			md[strings.TrimSuffix(strings.TrimPrefix(k, "metadata["), "]")] = v[0]
		}
	}
	p.mu.Lock()
	p.metadata = md
	p.amount = r.PostForm.Get("amount")
	p.mu.Unlock()
	_ = json.NewEncoder(w).Encode(map[string]string{
		"id":            "pi_e2e",
		"client_secret": "pi_e2e_secret",
		"status":        "requires_payment_method",
	})
}

type harness struct {
	t      *testing.T
	db     *gorm.DB
	cfg    *config.Config
	runner *async.Runner
	proc   *processor
	srv    *Server
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	proc := &processor{}
	procSrv := httptest.NewServer(proc)
	t.Cleanup(procSrv.Close)

	cfg := &config.Config{
		Payment: config.Payment{
			BaseApiURL:     procSrv.URL,
			SecretKey:      "sk_test",
			WebhookSecret:  webhookSecret,
			Currency:       "usd",
			TaxRate:        decimal.RequireFromString("0.08"),
			ShippingCost:   decimal.RequireFromString("9.99"),
			ProcessTimeout: 5 * time.Second,
		},
		Email:   config.Email{ModeratorAddress: "intake@pharmacy.test"},
		Session: config.Session{JWTSecret: "test-secret", CookieName: "session"},
		Admin:   config.Admin{GateCookie: "admin_gate", GateValue: "ok"},
	}

	db := testdb.New(t)
	log := zap.NewNop()
	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	runner := async.NewRunner(log)

	productRepo := repository.NewProductRepository(db)
	cartRepo := repository.NewCartRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	submissionRepo := repository.NewFormSubmissionRepository(db)

	notifier := service.NewNotifier(client.NewEmailClient(&cfg.Email, log), cfg.Email.ModeratorAddress, m, log)
	reconciler := service.NewReconciler(cartRepo, orderRepo, repository.NewInventoryRepository(db), notifier, runner, cfg.Payment, m, log)

	services := Services{
		Cart: service.NewCartService(cartRepo, productRepo, cfg.Payment),
		Checkout: service.NewCheckoutService(client.NewPaymentClient(&cfg.Payment), cartRepo,
			repository.NewWebhookEventRepository(db), reconciler, runner, cfg.Payment, m, log),
		Order:    service.NewOrderService(cartRepo, orderRepo, cfg.Payment, m, log),
		Product:  service.NewProductService(productRepo),
		Form:     service.NewFormService(submissionRepo, repository.NewUserProfileRepository(db), cartRepo, notifier, runner, log),
		Admin:    service.NewAdminService(submissionRepo, orderRepo),
		Provider: service.NewProviderService(repository.NewProviderRepository(db), client.NewESignClient(&cfg.ESign), m, log),
	}

	return &harness{
		t:      t,
		db:     db,
		cfg:    cfg,
		runner: runner,
		proc:   proc,
		srv:    NewServer(cfg, services, registry, log),
	}
}

func (h *harness) token(userID string) string {
	h.t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, middleware.SessionClaims{
		Email: userID + "@patient.test",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	raw, err := tok.SignedString([]byte(h.cfg.Session.JWTSecret))
	require.NoError(h.t, err)
	return raw
}

type reqOpt func(*http.Request)

func asUser(h *harness, userID string) reqOpt {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+h.token(userID)) }
}

func asAdmin(h *harness) reqOpt {
	return func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: h.cfg.Admin.GateCookie, Value: h.cfg.Admin.GateValue})
	}
}

func withHeader(k, v string) reqOpt {
	return func(r *http.Request) { r.Header.Set(k, v) }
}

func (h *harness) do(method, path string, body interface{}, opts ...reqOpt) *httptest.ResponseRecorder {
	h.t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case []byte:
		buf.Write(b)
	default:
		require.NoError(h.t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	if buf.Len() > 0 {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, opt := range opts {
		opt(req)
	}
	rec := httptest.NewRecorder()
	h.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (h *harness) createProduct(name, price string, stock int, status model.ProductStatus) *model.Product {
	h.t.Helper()
	rec := h.do(http.MethodPost, "/api/admin/products", map[string]interface{}{
		"name":           name,
		"price":          price,
		"stock_quantity": stock,
		"status":         status,
	}, asAdmin(h))
	require.Equal(h.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[*model.Product](h.t, rec)
}

func TestHealthAndMetrics(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	rec = h.do(http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthBoundaries(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodGet, "/api/cart", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"unauthorized"}`, rec.Body.String())

	rec = h.do(http.MethodPost, "/api/admin/products", map[string]string{"name": "x"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// a shopper session is not an admin session
	rec = h.do(http.MethodGet, "/api/admin/orders", nil, asUser(h, "u1"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPublicCatalogue(t *testing.T) {
	h := newHarness(t)
	live := h.createProduct("semaglutide", "199.00", 3, model.ProductStatusActive)
	draft := h.createProduct("unreleased", "10.00", 3, model.ProductStatusDraft)

	rec := h.do(http.MethodGet, "/api/products", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[map[string][]*model.Product](t, rec)
	require.Len(t, list["products"], 1)
	assert.Equal(t, live.ID, list["products"][0].ID)

	rec = h.do(http.MethodGet, "/api/products/"+itoa(draft.ID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(http.MethodGet, "/api/products?status=draft", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodGet, "/api/products/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodGet, "/api/admin/products?status=draft", nil, asAdmin(h))
	require.Equal(t, http.StatusOK, rec.Code)
	list = decode[map[string][]*model.Product](t, rec)
	require.Len(t, list["products"], 1)
	assert.Equal(t, draft.ID, list["products"][0].ID)

	rec = h.do(http.MethodDelete, "/api/admin/products/"+itoa(live.ID), nil, asAdmin(h))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = h.do(http.MethodGet, "/api/products/"+itoa(live.ID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCheckoutThroughWebhook(t *testing.T) {
	h := newHarness(t)
	p := h.createProduct("testosterone", "45.00", 5, model.ProductStatusActive)
	user := asUser(h, "u1")

	rec := h.do(http.MethodPost, "/api/cart", map[string]interface{}{"product_id": p.ID, "quantity": 2}, user)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = h.do(http.MethodPost, "/api/checkout/intent", map[string]interface{}{
		"customer_name":    "Jane",
		"shipping_address": map[string]string{"city": "Austin"},
	}, user)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	intent := decode[dto.CreateIntentResponse](t, rec)
	assert.Equal(t, "pi_e2e", intent.PaymentIntentID)
	assert.EqualValues(t, 10719, intent.Amount)
	assert.Equal(t, "10719", h.proc.amount)

	// nothing exists until the processor confirms
	rec = h.do(http.MethodGet, "/api/orders", nil, user)
	assert.Zero(t, decode[dto.OrderListResponse](t, rec).Total)

	event := model.PaymentEvent{
		ID:   "evt_1",
		Type: model.EventPaymentIntentSucceeded,
		Data: model.PaymentEventData{Object: model.PaymentIntent{
			ID:       "pi_e2e",
			Amount:   10719,
			Currency: "usd",
			Status:   "succeeded",
			Metadata: h.proc.metadata,
		}},
	}
	body, err := json.Marshal(event)
	require.NoError(t, err)

	rec = h.do(http.MethodPost, "/api/webhooks/payment", body,
		withHeader(client.PaymentSignatureHeader, client.SignatureHeader(webhookSecret, time.Now(), body)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	h.runner.Wait()

	// redelivery is acknowledged and changes nothing
	rec = h.do(http.MethodPost, "/api/webhooks/payment", body,
		withHeader(client.PaymentSignatureHeader, client.SignatureHeader(webhookSecret, time.Now(), body)))
	require.Equal(t, http.StatusOK, rec.Code)
	h.runner.Wait()

	rec = h.do(http.MethodGet, "/api/orders", nil, user)
	orders := decode[dto.OrderListResponse](t, rec)
	require.EqualValues(t, 1, orders.Total)
	order := orders.Orders[0]
	assert.Equal(t, model.PaymentStatusPaid, order.PaymentStatus)
	assert.Equal(t, model.OrderStatusProcessing, order.OrderStatus)
	assert.True(t, decimal.RequireFromString("107.19").Equal(order.TotalAmount))

	rec = h.do(http.MethodGet, "/api/orders/"+itoa(order.ID), nil, user)
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decode[*model.Order](t, rec)
	require.Len(t, detail.Items, 1)
	assert.Equal(t, 2, detail.Items[0].Quantity)

	// another shopper cannot read it
	rec = h.do(http.MethodGet, "/api/orders/"+itoa(order.ID), nil, asUser(h, "u2"))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(http.MethodGet, "/api/cart", nil, user)
	assert.Empty(t, decode[dto.CartResponse](t, rec).Items)

	rec = h.do(http.MethodGet, "/api/products/"+itoa(p.ID), nil)
	assert.Equal(t, 3, decode[*model.Product](t, rec).StockQuantity)

	rec = h.do(http.MethodGet, "/api/admin/orders?payment_status=paid", nil, asAdmin(h))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode[dto.OrderListResponse](t, rec).Total)
}

func TestPaymentWebhookRejections(t *testing.T) {
	h := newHarness(t)
	body := []byte(`{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{"id":"pi_1"}}}`)

	rec := h.do(http.MethodPost, "/api/webhooks/payment", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodPost, "/api/webhooks/payment", body,
		withHeader(client.PaymentSignatureHeader, client.SignatureHeader("wrong", time.Now(), body)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	stale := client.SignatureHeader(webhookSecret, time.Now().Add(-time.Hour), body)
	rec = h.do(http.MethodPost, "/api/webhooks/payment", body, withHeader(client.PaymentSignatureHeader, stale))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	garbage := []byte(`not json`)
	rec = h.do(http.MethodPost, "/api/webhooks/payment", garbage,
		withHeader(client.PaymentSignatureHeader, client.SignatureHeader(webhookSecret, time.Now(), garbage)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	h.runner.Wait()
	var n int64
	require.NoError(t, h.db.Model(&model.Order{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestCreateOrderIdempotency(t *testing.T) {
	h := newHarness(t)
	p := h.createProduct("tirzepatide", "10.00", 5, model.ProductStatusActive)
	user := asUser(h, "u1")

	rec := h.do(http.MethodPost, "/api/orders", nil, user, withHeader("Idempotency-Key", "k1"))
	assert.Equal(t, http.StatusBadRequest, rec.Code, "empty cart")

	rec = h.do(http.MethodPost, "/api/cart", map[string]interface{}{"product_id": p.ID}, user)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = h.do(http.MethodPost, "/api/orders", nil, user, withHeader("Idempotency-Key", "k1"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	first := decode[*model.Order](t, rec)
	assert.Equal(t, model.PaymentStatusPending, first.PaymentStatus)

	rec = h.do(http.MethodPost, "/api/orders", nil, user, withHeader("Idempotency-Key", "k1"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, first.ID, decode[*model.Order](t, rec).ID)
}

func TestCartEndpoints(t *testing.T) {
	h := newHarness(t)
	p := h.createProduct("bpc", "20.00", 5, model.ProductStatusActive)
	user := asUser(h, "u1")

	rec := h.do(http.MethodPost, "/api/cart", map[string]interface{}{"product_id": p.ID, "quantity": 1}, user)
	require.Equal(t, http.StatusCreated, rec.Code)
	item := decode[*model.CartItem](t, rec)

	rec = h.do(http.MethodPut, "/api/cart/"+itoa(item.ID), map[string]int{"quantity": 0}, user)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodPut, "/api/cart/"+itoa(item.ID), map[string]int{"quantity": 3}, user)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(http.MethodPut, "/api/cart/"+itoa(item.ID), map[string]int{"quantity": 2}, asUser(h, "u2"))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(http.MethodGet, "/api/cart", nil, user)
	cart := decode[dto.CartResponse](t, rec)
	require.Len(t, cart.Items, 1)
	assert.True(t, decimal.RequireFromString("60").Equal(cart.Totals.Subtotal))

	rec = h.do(http.MethodDelete, "/api/cart/"+itoa(item.ID), nil, user)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = h.do(http.MethodDelete, "/api/cart", nil, user)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestFormSubmissionFeedsCart(t *testing.T) {
	h := newHarness(t)
	user := asUser(h, "u1")

	rec := h.do(http.MethodPost, "/api/forms", map[string]interface{}{
		"form_type": "weight_loss",
		"form_data": map[string]interface{}{
			"full_name":   "Jane",
			"medications": []interface{}{"Semaglutide 2.5mg ($299.00)", "No price here"},
		},
	}, user)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decode[dto.SubmitFormResponse](t, rec)
	assert.Equal(t, 1, resp.CartItemsAdded)
	assert.Equal(t, 1, resp.CartItemsFailed)
	h.runner.Wait()

	rec = h.do(http.MethodGet, "/api/cart", nil, user)
	assert.Len(t, decode[dto.CartResponse](t, rec).Items, 1)

	rec = h.do(http.MethodPost, "/api/forms", map[string]interface{}{"form_type": "astrology"}, user)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodGet, "/api/admin/submissions/stats", nil, asAdmin(h))
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[dto.SubmissionStatsResponse](t, rec)
	assert.EqualValues(t, 1, stats.Total)

	rec = h.do(http.MethodPut, "/api/admin/submissions/"+itoa(resp.SubmissionID)+"/status",
		map[string]string{"status": "approved"}, asAdmin(h))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.SubmissionStatusApproved, decode[*model.FormSubmission](t, rec).Status)

	rec = h.do(http.MethodGet, "/api/admin/submissions?from=not-a-date", nil, asAdmin(h))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProviderSignupAndESignWebhook(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodPost, "/api/providers", map[string]string{
		"business_name": "Acme Clinic",
		"email":         "Doc@Acme.test",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	account := decode[*model.ProviderAccount](t, rec)
	assert.Equal(t, model.ProviderStatusPendingSignature, account.Status)

	rec = h.do(http.MethodPost, "/api/providers", map[string]string{"business_name": "Acme", "email": "doc@acme.test"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// e-sign secret is unset, so every callback fails verification
	rec = h.do(http.MethodPost, "/api/webhooks/esign", []byte(`{"event_type":"form.completed"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodPut, "/api/admin/providers/"+itoa(account.ID)+"/status",
		map[string]string{"status": "suspended"}, asAdmin(h))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, model.ProviderStatusSuspended, decode[*model.ProviderAccount](t, rec).Status)
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
