package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/littleworld/payment-service/internal/models"
)

// fakeOrderRepo mimics the Postgres repository's conditional-update
// semantics in memory, including the compare-and-set on MarkVerified.
type fakeOrderRepo struct {
	mu     sync.Mutex
	orders map[string]*models.PaymentOrder
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[string]*models.PaymentOrder)}
}

func (r *fakeOrderRepo) Create(_ context.Context, order *models.PaymentOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[order.ID]; ok {
		return errors.New("duplicate order id")
	}
	cp := *order
	r.orders[order.ID] = &cp
	return nil
}

func (r *fakeOrderRepo) GetByID(_ context.Context, id string) (*models.PaymentOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, models.ErrUnknownOrder
	}
	cp := *order
	return &cp, nil
}

func (r *fakeOrderRepo) GetByReceiptID(_ context.Context, receiptID string) (*models.PaymentOrder, error) {
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

func (r *fakeOrderRepo) MarkVerified(_ context.Context, id, paymentID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return false, nil
	}
	for otherID, other := range r.orders {
		if otherID != id && other.PaymentID == paymentID {
			return false, errors.New("payment id already recorded for another order")
		}
	}
	if order.Status != models.StatusCreated && order.Status != models.StatusFailed {
		return false, nil
	}
	if order.PaymentID != "" && order.PaymentID != paymentID {
		return false, nil
	}
	order.Status = models.StatusVerified
	order.PaymentID = paymentID
	order.UpdatedAt = time.Now()
	return true, nil
}

func (r *fakeOrderRepo) MarkFailed(_ context.Context, id string) error {
	return r.setStatus(id, models.StatusCreated, models.StatusFailed)
}

func (r *fakeOrderRepo) MarkExpired(_ context.Context, id string) error {
	return r.setStatus(id, models.StatusCreated, models.StatusExpired)
}

func (r *fakeOrderRepo) setStatus(id string, from, to models.OrderStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return models.ErrUnknownOrder
	}
	if order.Status == from {
		order.Status = to
		order.UpdatedAt = time.Now()
	}
	return nil
}

func (r *fakeOrderRepo) ExpireStale(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, order := range r.orders {
		if order.Status == models.StatusCreated && order.CreatedAt.Before(cutoff) {
			order.Status = models.StatusExpired
			n++
		}
	}
	return n, nil
}

type fakeCatalog struct {
	prices map[string]int64
}

func (c *fakeCatalog) UnitPrice(_ context.Context, sku string) (int64, error) {
	price, ok := c.prices[sku]
	if !ok {
		return 0, models.ErrInvalidAmount
	}
	return price, nil
}

type fakeGateway struct {
	mu      sync.Mutex
	nextID  string
	fail    bool
	calls   int
	lastAmt int64
}

func (g *fakeGateway) CreateOrder(_ context.Context, amount int64, currency, receiptID string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	g.lastAmt = amount
	if g.fail {
		return "", models.ErrGatewayUnavailable
	}
	if g.nextID == "" {
		return "order_test", nil
	}
	return g.nextID, nil
}

type fakeEvents struct {
	mu     sync.Mutex
	events []map[string]interface{}
}

func (e *fakeEvents) Publish(_ context.Context, _ string, event map[string]interface{}) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
	return nil
}

func (e *fakeEvents) byType(eventType string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	var n int
	for _, ev := range e.events {
		if ev["type"] == eventType {
			n++
		}
	}
	return n
}
