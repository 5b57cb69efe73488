package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/littleworld/payment-service/internal/interfaces"
	"github.com/littleworld/payment-service/internal/models"
	"github.com/littleworld/payment-service/internal/telemetry"
)

// OrderIntentBuilder validates a proposed purchase, re-derives its
// total from the trusted catalog and opens a gateway order for it.
type OrderIntentBuilder struct {
	repo           interfaces.OrderRepository
	catalog        interfaces.PriceCatalog
	gateway        interfaces.OrderGateway
	events         interfaces.EventPublisher
	currency       string
	shippingFee    int64
	taxBps         int64
	gatewayTimeout time.Duration
}

func NewOrderIntentBuilder(
	repo interfaces.OrderRepository,
	catalog interfaces.PriceCatalog,
	gateway interfaces.OrderGateway,
	events interfaces.EventPublisher,
	currency string,
	shippingFee, taxBps int64,
	gatewayTimeout time.Duration,
) *OrderIntentBuilder {
	return &OrderIntentBuilder{
		repo:           repo,
		catalog:        catalog,
		gateway:        gateway,
		events:         events,
		currency:       currency,
		shippingFee:    shippingFee,
		taxBps:         taxBps,
		gatewayTimeout: gatewayTimeout,
	}
}

func (b *OrderIntentBuilder) Build(ctx context.Context, req models.CreateOrderRequest) (*models.PaymentOrder, error) {
	amount, err := b.computeTotal(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	currency := req.Currency
	if currency == "" {
		currency = b.currency
	}

	receiptID := req.ReceiptID
	if receiptID == "" {
		receiptID = "rcpt_" + uuid.New().String()
	} else {
		// A retried checkout attempt reuses its receipt; if the gateway
		// order already exists, hand it back instead of opening a second
		// one.
		existing, err := b.repo.GetByReceiptID(ctx, receiptID)
		if err != nil && !errors.Is(err, models.ErrUnknownOrder) {
			return nil, fmt.Errorf("lookup receipt: %w", err)
		}
		if existing != nil {
			telemetry.Logger.Info("Reusing existing order for receipt",
				zap.String("receipt_id", receiptID),
				zap.String("order_id", existing.ID),
			)
			return existing, nil
		}
	}

	gatewayCtx, cancel := context.WithTimeout(ctx, b.gatewayTimeout)
	defer cancel()

	orderID, err := b.gateway.CreateOrder(gatewayCtx, amount, currency, receiptID)
	if err != nil {
		telemetry.Logger.Error("Gateway order creation failed",
			zap.String("receipt_id", receiptID),
			zap.Error(err),
		)
		return nil, err
	}

	order := &models.PaymentOrder{
		ID:        orderID,
		Amount:    amount,
		Currency:  currency,
		ReceiptID: receiptID,
		Status:    models.StatusCreated,
		CreatedAt: time.Now(),
	}

	if err := b.repo.Create(ctx, order); err != nil {
		telemetry.Logger.Error("Failed to persist payment order",
			zap.String("order_id", orderID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("persist order: %w", err)
	}

	ordersCreated.Inc()

	_ = b.events.Publish(ctx, orderID, map[string]interface{}{
		"type":       "payment.order.created",
		"order_id":   orderID,
		"amount":     amount,
		"currency":   currency,
		"receipt_id": receiptID,
		"created_at": order.CreatedAt,
	})

	telemetry.Logger.Info("Payment order created",
		zap.String("order_id", orderID),
		zap.Int64("amount", amount),
		zap.String("currency", currency),
		zap.String("receipt_id", receiptID),
	)

	return order, nil
}

func (b *OrderIntentBuilder) computeTotal(ctx context.Context, items []models.LineItem) (int64, error) {
	if len(items) == 0 {
		return 0, models.ErrInvalidAmount
	}

	var subtotal int64
	for _, item := range items {
		if item.Quantity <= 0 {
			return 0, models.ErrInvalidAmount
		}
		price, err := b.catalog.UnitPrice(ctx, item.SKU)
		if err != nil {
			return 0, err
		}
		// Client prices are display-only; a disagreement means the
		// client saw stale data and must refresh, not that we reprice
		// silently.
		if item.UnitPrice != 0 && item.UnitPrice != price {
			return 0, models.ErrInvalidAmount
		}
		subtotal += price * item.Quantity
	}

	if subtotal <= 0 {
		return 0, models.ErrInvalidAmount
	}

	total := subtotal + b.shippingFee + subtotal*b.taxBps/10000
	if total <= 0 {
		return 0, models.ErrInvalidAmount
	}
	return total, nil
}
