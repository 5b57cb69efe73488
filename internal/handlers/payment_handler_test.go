package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/littleworld/payment-service/internal/api"
	"github.com/littleworld/payment-service/internal/models"
	"github.com/littleworld/payment-service/internal/service"
)

const testSecret = "test_secret"

type stubRepo struct {
	mu     sync.Mutex
	orders map[string]*models.PaymentOrder
}

func newStubRepo() *stubRepo {
	return &stubRepo{orders: make(map[string]*models.PaymentOrder)}
}

func (r *stubRepo) Create(_ context.Context, order *models.PaymentOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *order
	r.orders[order.ID] = &cp
	return nil
}

func (r *stubRepo) GetByID(_ context.Context, id string) (*models.PaymentOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, models.ErrUnknownOrder
	}
	cp := *order
	return &cp, nil
}

func (r *stubRepo) GetByReceiptID(_ context.Context, receiptID string) (*models.PaymentOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, order := range r.orders {
		if order.ReceiptID == receiptID {
			cp := *order
			return &cp, nil
		}
	}
	return nil, models.ErrUnknownOrder
}

func (r *stubRepo) MarkVerified(_ context.Context, id, paymentID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok || (order.Status != models.StatusCreated && order.Status != models.StatusFailed) {
		return false, nil
	}
	order.Status = models.StatusVerified
	order.PaymentID = paymentID
	return true, nil
}

func (r *stubRepo) MarkFailed(_ context.Context, id string) error {
	return r.setStatus(id, models.StatusFailed)
}

func (r *stubRepo) MarkExpired(_ context.Context, id string) error {
	return r.setStatus(id, models.StatusExpired)
}

func (r *stubRepo) setStatus(id string, to models.OrderStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if order, ok := r.orders[id]; ok {
		order.Status = to
	}
	return nil
}

func (r *stubRepo) ExpireStale(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

type stubCatalog struct{}

func (stubCatalog) UnitPrice(_ context.Context, sku string) (int64, error) {
	if sku == "onesie-0-3m" {
		return 104900, nil
	}
	return 0, models.ErrInvalidAmount
}

type stubGateway struct {
	fail bool
	seq  int
}

func (g *stubGateway) CreateOrder(_ context.Context, _ int64, _, _ string) (string, error) {
	if g.fail {
		return "", models.ErrGatewayUnavailable
	}
	g.seq++
	return fmt.Sprintf("order_%d", g.seq), nil
}

type stubEvents struct{}

func (stubEvents) Publish(_ context.Context, _ string, _ map[string]interface{}) error {
	return nil
}

func newTestServer(repo *stubRepo, gw *stubGateway) *httptest.Server {
	intent := service.NewOrderIntentBuilder(
		repo, stubCatalog{}, gw, stubEvents{}, "INR", 0, 0, 10*time.Second,
	)
	verifier := service.NewCallbackVerifier(repo, stubEvents{}, nil, testSecret, 30*time.Minute)
	router := api.NewRouter(intent, verifier, repo, nil)
	return httptest.NewServer(router)
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestCreateOrder(t *testing.T) {
	repo := newStubRepo()
	srv := newTestServer(repo, &stubGateway{})
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/payment/order", models.CreateOrderRequest{
		Items:     []models.LineItem{{SKU: "onesie-0-3m", Quantity: 1}},
		ReceiptID: "r1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode(t, resp)
	assert.Equal(t, "order_1", body["orderId"])
	assert.Equal(t, float64(104900), body["amountMinorUnits"])
	assert.Equal(t, "INR", body["currency"])
}

func TestCreateOrder_InvalidAmount(t *testing.T) {
	srv := newTestServer(newStubRepo(), &stubGateway{})
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/payment/order", models.CreateOrderRequest{
		Items:     []models.LineItem{{SKU: "no-such-sku", Quantity: 1}},
		ReceiptID: "r1",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_amount", decode(t, resp)["error"])
}

func TestCreateOrder_GatewayUnavailable(t *testing.T) {
	srv := newTestServer(newStubRepo(), &stubGateway{fail: true})
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/payment/order", models.CreateOrderRequest{
		Items:     []models.LineItem{{SKU: "onesie-0-3m", Quantity: 1}},
		ReceiptID: "r1",
	})
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "gateway_unavailable", decode(t, resp)["error"])
}

func TestCreateOrder_IdempotencyKeyHeader(t *testing.T) {
	repo := newStubRepo()
	srv := newTestServer(repo, &stubGateway{})
	defer srv.Close()

	order := &models.PaymentOrder{
		ID: "order_existing", Amount: 104900, Currency: "INR",
		ReceiptID: "r1", Status: models.StatusCreated, CreatedAt: time.Now(),
	}
	require.NoError(t, repo.Create(context.Background(), order))

	payload, err := json.Marshal(models.CreateOrderRequest{
		Items: []models.LineItem{{SKU: "onesie-0-3m", Quantity: 1}},
	})
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/payment/order", bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", "r1")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "order_existing", decode(t, resp)["orderId"])
}

func TestVerifyPayment_StatusCodes(t *testing.T) {
	repo := newStubRepo()
	srv := newTestServer(repo, &stubGateway{})
	defer srv.Close()

	order := &models.PaymentOrder{
		ID: "order_abc", Amount: 104900, Currency: "INR",
		ReceiptID: "r1", Status: models.StatusCreated, CreatedAt: time.Now(),
	}
	require.NoError(t, repo.Create(context.Background(), order))

	validSig := service.Signature([]byte(testSecret), "order_abc", "pay_123")

	cases := []struct {
		name     string
		callback models.PaymentCallback
		want     int
		errKind  string
	}{
		{
			name:     "valid signature",
			callback: models.PaymentCallback{OrderID: "order_abc", PaymentID: "pay_123", Signature: validSig},
			want:     http.StatusOK,
		},
		{
			name:     "replay",
			callback: models.PaymentCallback{OrderID: "order_abc", PaymentID: "pay_123", Signature: validSig},
			want:     http.StatusOK,
		},
		{
			name:     "missing fields",
			callback: models.PaymentCallback{OrderID: "order_abc"},
			want:     http.StatusBadRequest,
			errKind:  "malformed_callback",
		},
		{
			name:     "unknown order",
			callback: models.PaymentCallback{OrderID: "order_ghost", PaymentID: "pay_123", Signature: validSig},
			want:     http.StatusNotFound,
			errKind:  "unknown_order",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := postJSON(t, srv.URL+"/payment/verify", tc.callback)
			require.Equal(t, tc.want, resp.StatusCode)
			body := decode(t, resp)
			if tc.errKind != "" {
				assert.Equal(t, tc.errKind, body["error"])
				assert.Equal(t, "payment could not be confirmed", body["message"])
			} else {
				assert.Equal(t, true, body["verified"])
			}
		})
	}
}

func TestVerifyPayment_SignatureMismatch(t *testing.T) {
	repo := newStubRepo()
	srv := newTestServer(repo, &stubGateway{})
	defer srv.Close()

	order := &models.PaymentOrder{
		ID: "order_abc", Amount: 104900, Currency: "INR",
		ReceiptID: "r1", Status: models.StatusCreated, CreatedAt: time.Now(),
	}
	require.NoError(t, repo.Create(context.Background(), order))

	resp := postJSON(t, srv.URL+"/payment/verify", models.PaymentCallback{
		OrderID: "order_abc", PaymentID: "pay_123", Signature: "deadbeef",
	})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	body := decode(t, resp)
	assert.Equal(t, "signature_mismatch", body["error"])
	assert.Equal(t, "payment could not be confirmed", body["message"])

	stored, err := repo.GetByID(context.Background(), "order_abc")
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, stored.Status)
}

func TestVerifyPayment_ExpiredOrder(t *testing.T) {
	repo := newStubRepo()
	srv := newTestServer(repo, &stubGateway{})
	defer srv.Close()

	order := &models.PaymentOrder{
		ID: "order_abc", Amount: 104900, Currency: "INR", ReceiptID: "r1",
		Status: models.StatusCreated, CreatedAt: time.Now().Add(-time.Hour),
	}
	require.NoError(t, repo.Create(context.Background(), order))

	resp := postJSON(t, srv.URL+"/payment/verify", models.PaymentCallback{
		OrderID:   "order_abc",
		PaymentID: "pay_123",
		Signature: service.Signature([]byte(testSecret), "order_abc", "pay_123"),
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "order_expired", decode(t, resp)["error"])
}

func TestGetOrder(t *testing.T) {
	repo := newStubRepo()
	srv := newTestServer(repo, &stubGateway{})
	defer srv.Close()

	order := &models.PaymentOrder{
		ID: "order_abc", Amount: 104900, Currency: "INR",
		ReceiptID: "r1", Status: models.StatusCreated, CreatedAt: time.Now(),
	}
	require.NoError(t, repo.Create(context.Background(), order))

	resp, err := http.Get(srv.URL + "/payment/orders/order_abc")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "created", decode(t, resp)["status"])

	resp, err = http.Get(srv.URL + "/payment/orders/order_ghost")
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestHealth(t *testing.T) {
	srv := newTestServer(newStubRepo(), &stubGateway{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decode(t, resp)["status"])
}
