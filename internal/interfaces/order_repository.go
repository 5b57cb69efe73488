package interfaces

import (
	"context"
	"time"

	"github.com/littleworld/payment-service/internal/models"
)

// OrderRepository defines the contract for payment-order data access.
type OrderRepository interface {
	Create(ctx context.Context, order *models.PaymentOrder) error
	GetByID(ctx context.Context, id string) (*models.PaymentOrder, error)
	GetByReceiptID(ctx context.Context, receiptID string) (*models.PaymentOrder, error)
	// MarkVerified records the payment id and moves the order to
	// verified, but only if the current status still allows it. It
	// reports whether this caller won the transition.
	MarkVerified(ctx context.Context, id, paymentID string) (bool, error)
	MarkFailed(ctx context.Context, id string) error
	MarkExpired(ctx context.Context, id string) error
	ExpireStale(ctx context.Context, cutoff time.Time) (int64, error)
}

// PriceCatalog resolves trusted unit prices. Client-submitted prices
// are display-only and are checked against this catalog.
type PriceCatalog interface {
	UnitPrice(ctx context.Context, sku string) (int64, error)
}

// OrderGateway opens an order with the payment provider and returns
// the provider's opaque order id.
type OrderGateway interface {
	CreateOrder(ctx context.Context, amount int64, currency, receiptID string) (string, error)
}

// EventPublisher emits payment lifecycle events keyed by order id.
type EventPublisher interface {
	Publish(ctx context.Context, orderID string, event map[string]interface{}) error
}
