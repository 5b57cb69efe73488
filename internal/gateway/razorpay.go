package gateway

import (
	"context"
	"fmt"
	"time"

	razorpay "github.com/razorpay/razorpay-go"

	"github.com/littleworld/payment-service/internal/models"
)

// RazorpayGateway opens orders against the hosted Razorpay API. The
// provider is a black box here: it takes an amount, currency and
// receipt and hands back an opaque order id.
type RazorpayGateway struct {
	client  *razorpay.Client
	timeout time.Duration
}

func NewRazorpayGateway(keyID, keySecret string, timeout time.Duration) *RazorpayGateway {
	client := razorpay.NewClient(keyID, keySecret)
	client.SetTimeout(int16(timeout.Seconds()))
	return &RazorpayGateway{
		client:  client,
		timeout: timeout,
	}
}

func (g *RazorpayGateway) CreateOrder(ctx context.Context, amount int64, currency, receiptID string) (string, error) {
	data := map[string]interface{}{
		"amount":   amount,
		"currency": currency,
		"receipt":  receiptID,
	}

	type result struct {
		order map[string]interface{}
		err   error
	}
	done := make(chan result, 1)

	// The SDK call is not context-aware; it is bounded by the client
	// timeout, and the select lets callers bail out earlier.
	go func() {
		order, err := g.client.Order.Create(data, nil)
		done <- result{order: order, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %v", models.ErrGatewayUnavailable, ctx.Err())
	case res := <-done:
		if res.err != nil {
			return "", fmt.Errorf("%w: %v", models.ErrGatewayUnavailable, res.err)
		}
		id, ok := res.order["id"].(string)
		if !ok || id == "" {
			return "", fmt.Errorf("%w: gateway response missing order id", models.ErrGatewayUnavailable)
		}
		return id, nil
	}
}
