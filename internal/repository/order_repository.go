package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/littleworld/payment-service/internal/models"
)

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) InitDB() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS payment_orders (
			id VARCHAR(255) PRIMARY KEY,
			amount BIGINT NOT NULL,
			currency VARCHAR(3) NOT NULL,
			receipt_id VARCHAR(255) NOT NULL UNIQUE,
			payment_id VARCHAR(255),
			status VARCHAR(50) NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_payment_orders_payment_id
			ON payment_orders(payment_id) WHERE payment_id IS NOT NULL`,
		`CREATE INDEX IF NOT EXISTS idx_payment_orders_status ON payment_orders(status)`,
	}

	for _, query := range queries {
		if _, err := r.db.Exec(query); err != nil {
			return err
		}
	}

	return nil
}

func (r *OrderRepository) Create(ctx context.Context, order *models.PaymentOrder) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO payment_orders (id, amount, currency, receipt_id, status)
		VALUES ($1, $2, $3, $4, $5)
	`, order.ID, order.Amount, order.Currency, order.ReceiptID, order.Status)
	return err
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*models.PaymentOrder, error) {
	return r.scanOne(r.db.QueryRowContext(ctx, `
		SELECT id, amount, currency, receipt_id, payment_id, status, created_at, updated_at
		FROM payment_orders WHERE id = $1
	`, id))
}

func (r *OrderRepository) GetByReceiptID(ctx context.Context, receiptID string) (*models.PaymentOrder, error) {
	return r.scanOne(r.db.QueryRowContext(ctx, `
		SELECT id, amount, currency, receipt_id, payment_id, status, created_at, updated_at
		FROM payment_orders WHERE receipt_id = $1
	`, receiptID))
}

func (r *OrderRepository) scanOne(row *sql.Row) (*models.PaymentOrder, error) {
	var order models.PaymentOrder
	var paymentID sql.NullString
	err := row.Scan(&order.ID, &order.Amount, &order.Currency, &order.ReceiptID,
		&paymentID, &order.Status, &order.CreatedAt, &order.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, models.ErrUnknownOrder
	}
	if err != nil {
		return nil, err
	}
	order.PaymentID = paymentID.String
	return &order, nil
}

// MarkVerified is the single atomic transition to verified. The WHERE
// clause is the compare-and-set: exactly one racing caller sees a row
// update, everyone else takes the idempotent already-verified path.
func (r *OrderRepository) MarkVerified(ctx context.Context, id, paymentID string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE payment_orders
		SET status = $1, payment_id = $2, updated_at = NOW()
		WHERE id = $3 AND status IN ($4, $5)
			AND (payment_id IS NULL OR payment_id = $2)
	`, models.StatusVerified, paymentID, id, models.StatusCreated, models.StatusFailed)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (r *OrderRepository) MarkFailed(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE payment_orders SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
	`, models.StatusFailed, id, models.StatusCreated)
	return err
}

func (r *OrderRepository) MarkExpired(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE payment_orders SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
	`, models.StatusExpired, id, models.StatusCreated)
	return err
}

func (r *OrderRepository) ExpireStale(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE payment_orders SET status = $1, updated_at = NOW()
		WHERE status = $2 AND created_at < $3
	`, models.StatusExpired, models.StatusCreated, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
