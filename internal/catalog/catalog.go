package catalog

import (
	"context"
	"database/sql"

	"github.com/littleworld/payment-service/internal/models"
)

// Catalog is the trusted source of unit prices. Checkout totals are
// always re-derived from these rows, never from client-submitted
// prices.
type Catalog struct {
	db *sql.DB
}

func NewCatalog(db *sql.DB) *Catalog {
	return &Catalog{db: db}
}

func (c *Catalog) InitDB() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS catalog_prices (
			sku VARCHAR(255) PRIMARY KEY,
			unit_price BIGINT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, query := range queries {
		if _, err := c.db.Exec(query); err != nil {
			return err
		}
	}

	return nil
}

func (c *Catalog) UnitPrice(ctx context.Context, sku string) (int64, error) {
	var price int64
	err := c.db.QueryRowContext(ctx,
		`SELECT unit_price FROM catalog_prices WHERE sku = $1`, sku).Scan(&price)
	if err == sql.ErrNoRows {
		return 0, models.ErrInvalidAmount
	}
	if err != nil {
		return 0, err
	}
	return price, nil
}

// Upsert lets the admin console push price changes through; checkout
// only ever reads.
func (c *Catalog) Upsert(ctx context.Context, sku string, unitPrice int64) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO catalog_prices (sku, unit_price)
		VALUES ($1, $2)
		ON CONFLICT (sku) DO UPDATE SET unit_price = $2, updated_at = NOW()
	`, sku, unitPrice)
	return err
}
