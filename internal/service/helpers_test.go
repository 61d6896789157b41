package service

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"pharmacy-portal/internal/async"
	"pharmacy-portal/internal/client"
	"pharmacy-portal/internal/config"
	"pharmacy-portal/internal/metrics"
	"pharmacy-portal/internal/model"
	"pharmacy-portal/internal/repository"
	"pharmacy-portal/internal/testdb"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func testPaymentConfig() config.Payment {
	return config.Payment{
		Currency:       "usd",
		TaxRate:        dec("0.08"),
		ShippingCost:   dec("9.99"),
		ProcessTimeout: 5 * time.Second,
		WebhookSecret:  "whsec_test",
	}
}

// fakeEmail records every message it is asked to send.
type fakeEmail struct {
	mu   sync.Mutex
	sent []*client.EmailMessage
	fail map[string]error
}

func (f *fakeEmail) Send(ctx context.Context, msg *client.EmailMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail[msg.To]; err != nil {
		return err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeEmail) Sent() []*client.EmailMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*client.EmailMessage(nil), f.sent...)
}

type mockPaymentClient struct {
	mock.Mock
}

func (m *mockPaymentClient) CreatePaymentIntent(ctx context.Context, req *client.CreateIntentRequest) (*client.CreateIntentResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*client.CreateIntentResponse)
	return resp, args.Error(1)
}

func (m *mockPaymentClient) VerifyWebhookSignature(headers http.Header, body []byte) error {
	return m.Called(headers, body).Error(0)
}

type mockInventory struct {
	mock.Mock
}

func (m *mockInventory) DecrementClamped(ctx context.Context, productID uint, quantity int) (int64, error) {
	args := m.Called(ctx, productID, quantity)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockInventory) DecrementReadWrite(ctx context.Context, productID uint, quantity int) error {
	return m.Called(ctx, productID, quantity).Error(0)
}

func (m *mockInventory) MarkOutOfStockIfEmpty(ctx context.Context, productID uint) error {
	return m.Called(ctx, productID).Error(0)
}

// flakyOrderRepo is the real order repository with CreateOrderItems
// answered by the mock.
type flakyOrderRepo struct {
	repository.OrderRepository
	mock.Mock
}

func (r *flakyOrderRepo) CreateOrderItems(ctx context.Context, items []*model.OrderItem) error {
	return r.Called(ctx, items).Error(0)
}

// flakyCartRepo is the real cart repository with ClearByUser answered by
// the mock.
type flakyCartRepo struct {
	repository.CartRepository
	mock.Mock
}

func (r *flakyCartRepo) ClearByUser(ctx context.Context, userID string) (int64, error) {
	args := r.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

// fixture wires real repositories over a private sqlite database.
type fixture struct {
	db         *gorm.DB
	products   repository.ProductRepository
	carts      repository.CartRepository
	orders     repository.OrderRepository
	inventory  repository.InventoryRepository
	events     repository.WebhookEventRepository
	email      *fakeEmail
	runner     *async.Runner
	metrics    *metrics.Metrics
	notifier   Notifier
	reconciler Reconciler
	cfg        config.Payment
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testdb.New(t)
	f := &fixture{
		db:        db,
		products:  repository.NewProductRepository(db),
		carts:     repository.NewCartRepository(db),
		orders:    repository.NewOrderRepository(db),
		inventory: repository.NewInventoryRepository(db),
		events:    repository.NewWebhookEventRepository(db),
		email:     &fakeEmail{},
		runner:    async.NewRunner(zap.NewNop()),
		metrics:   metrics.New(prometheus.NewRegistry()),
		cfg:       testPaymentConfig(),
	}
	f.notifier = NewNotifier(f.email, "intake@pharmacy.test", f.metrics, zap.NewNop())
	f.reconciler = f.newReconciler(f.inventory)
	return f
}

func (f *fixture) newReconciler(inv repository.InventoryRepository) Reconciler {
	return NewReconciler(f.carts, f.orders, inv, f.notifier, f.runner, f.cfg, f.metrics, zap.NewNop())
}

func (f *fixture) product(t *testing.T, name, price string, stock int) *model.Product {
	t.Helper()
	p := &model.Product{
		Name:          name,
		SKU:           "SKU-" + name,
		ImageURL:      "https://img.test/" + name,
		Price:         dec(price),
		StockQuantity: stock,
		Status:        model.ProductStatusActive,
	}
	require.NoError(t, f.products.Create(context.Background(), p))
	return p
}

func (f *fixture) addToCart(t *testing.T, userID string, p *model.Product, qty int) {
	t.Helper()
	_, err := f.carts.Add(context.Background(), &model.CartItem{
		UserID:     userID,
		ProductID:  &p.ID,
		ItemName:   p.Name,
		Quantity:   qty,
		PriceAtAdd: p.Price,
	})
	require.NoError(t, err)
}

func (f *fixture) orderCount(t *testing.T, ref string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&model.Order{}).Where("payment_reference = ?", ref).Count(&n).Error)
	return n
}

func (f *fixture) stock(t *testing.T, id uint) *model.Product {
	t.Helper()
	p, err := f.products.FindByID(context.Background(), id)
	require.NoError(t, err)
	return p
}

func succeededIntent(ref, userID string) *model.PaymentIntent {
	return &model.PaymentIntent{
		ID:       ref,
		Amount:   10719,
		Currency: "usd",
		Status:   "succeeded",
		Metadata: map[string]string{
			"user_id":        userID,
			"customer_email": "jane@patient.test",
			"customer_name":  "Jane",
			"subtotal":       "90.00",
			"tax":            "7.20",
			"shipping":       "9.99",
			"discount":       "0.00",
			"total":          "107.19",
			"shipping_city":  "Austin",
		},
	}
}
