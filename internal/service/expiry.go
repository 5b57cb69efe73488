package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/littleworld/payment-service/internal/interfaces"
	"github.com/littleworld/payment-service/internal/telemetry"
)

// ExpirySweeper moves orders that never received a callback to
// expired, so stale callbacks cannot complete abandoned checkouts. The
// verifier also checks lazily; the sweeper keeps the audit rows honest
// between callbacks.
type ExpirySweeper struct {
	repo     interfaces.OrderRepository
	expiry   time.Duration
	interval time.Duration
}

func NewExpirySweeper(repo interfaces.OrderRepository, expiry, interval time.Duration) *ExpirySweeper {
	return &ExpirySweeper{
		repo:     repo,
		expiry:   expiry,
		interval: interval,
	}
}

func (s *ExpirySweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	telemetry.Logger.Info("Started order expiry sweeper",
		zap.Duration("expiry", s.expiry),
		zap.Duration("interval", s.interval),
	)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

func (s *ExpirySweeper) Sweep(ctx context.Context) {
	cutoff := time.Now().Add(-s.expiry)
	n, err := s.repo.ExpireStale(ctx, cutoff)
	if err != nil {
		telemetry.Logger.Error("Expiry sweep failed", zap.Error(err))
		return
	}
	if n > 0 {
		ordersExpired.Add(float64(n))
		telemetry.Logger.Info("Expired stale orders", zap.Int64("count", n))
	}
}
