package models

import "time"

type OrderStatus string

const (
	StatusCreated  OrderStatus = "created"
	StatusVerified OrderStatus = "verified"
	StatusFailed   OrderStatus = "failed"
	StatusExpired  OrderStatus = "expired"
)

// PaymentOrder is the audit record of a single checkout attempt against
// the gateway. Rows are never deleted; the status moves through
// created -> verified|failed|expired exactly once per transition.
type PaymentOrder struct {
	ID        string      `json:"order_id"`
	Amount    int64       `json:"amount_minor_units"`
	Currency  string      `json:"currency"`
	ReceiptID string      `json:"receipt_id"`
	PaymentID string      `json:"payment_id,omitempty"`
	Status    OrderStatus `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

type LineItem struct {
	SKU string `json:"sku" binding:"required"`
	// UnitPrice is advisory: the display price the client saw, in minor
	// units. The catalog price is authoritative and a mismatch rejects
	// the order rather than silently repricing it.
	UnitPrice int64 `json:"unit_price_minor_units"`
	Quantity  int64 `json:"quantity" binding:"required"`
}

type CreateOrderRequest struct {
	Items     []LineItem `json:"items" binding:"required"`
	Currency  string     `json:"currency"`
	ReceiptID string     `json:"receipt_id"`
}

type CreateOrderResponse struct {
	OrderID  string `json:"orderId"`
	Amount   int64  `json:"amountMinorUnits"`
	Currency string `json:"currency"`
}

// PaymentCallback carries the gateway's payment-completion parameters.
// All three fields are required; a missing one is a malformed callback,
// not a failed verification.
type PaymentCallback struct {
	OrderID   string `json:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature"`
}
