package service

import (
	"context"
	"crypto/hmac"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/littleworld/payment-service/internal/interfaces"
	"github.com/littleworld/payment-service/internal/models"
	"github.com/littleworld/payment-service/internal/telemetry"
)

// CallbackVerifier authenticates payment callbacks. It is the only
// component allowed to move an order out of the created state, and the
// only place a forged or tampered confirmation can be rejected.
type CallbackVerifier struct {
	repo        interfaces.OrderRepository
	events      interfaces.EventPublisher
	redisClient *redis.Client
	secret      []byte
	expiry      time.Duration
	now         func() time.Time
}

func NewCallbackVerifier(
	repo interfaces.OrderRepository,
	events interfaces.EventPublisher,
	redisClient *redis.Client,
	secret string,
	expiry time.Duration,
) *CallbackVerifier {
	return &CallbackVerifier{
		repo:        repo,
		events:      events,
		redisClient: redisClient,
		secret:      []byte(secret),
		expiry:      expiry,
		now:         time.Now,
	}
}

func (v *CallbackVerifier) Verify(ctx context.Context, cb models.PaymentCallback) error {
	if cb.OrderID == "" || cb.PaymentID == "" || cb.Signature == "" {
		verificationResults.WithLabelValues("malformed").Inc()
		telemetry.Logger.Warn("Malformed payment callback",
			zap.Bool("has_order_id", cb.OrderID != ""),
			zap.Bool("has_payment_id", cb.PaymentID != ""),
			zap.Bool("has_signature", cb.Signature != ""),
		)
		return models.ErrMalformedCallback
	}

	order, err := v.repo.GetByID(ctx, cb.OrderID)
	if err != nil {
		if err == models.ErrUnknownOrder {
			verificationResults.WithLabelValues("unknown_order").Inc()
			telemetry.Logger.Warn("Callback for unknown order",
				zap.String("order_id", cb.OrderID),
				zap.String("signature", maskSignature(cb.Signature)),
			)
			return models.ErrUnknownOrder
		}
		return fmt.Errorf("lookup order: %w", err)
	}

	// Advisory lock against duplicate webhook deliveries racing for the
	// same order; the conditional update below is the authoritative
	// guard, so failing to acquire it is not fatal.
	if v.redisClient != nil {
		lockKey := fmt.Sprintf("order_lock:%s", cb.OrderID)
		if v.redisClient.SetNX(ctx, lockKey, "1", 30*time.Second).Val() {
			defer v.redisClient.Del(ctx, lockKey)
		}
	}

	switch order.Status {
	case models.StatusVerified:
		// Replay-safe: an already-verified order is a no-op success, no
		// recomputation that could be gamed.
		verificationResults.WithLabelValues("replay").Inc()
		telemetry.Logger.Info("Replayed callback for verified order",
			zap.String("order_id", cb.OrderID),
			zap.String("signature", maskSignature(cb.Signature)),
		)
		return nil
	case models.StatusExpired:
		verificationResults.WithLabelValues("expired").Inc()
		return models.ErrOrderExpired
	}

	if order.Status == models.StatusCreated && v.now().After(order.CreatedAt.Add(v.expiry)) {
		if err := v.repo.MarkExpired(ctx, cb.OrderID); err != nil {
			return fmt.Errorf("expire order: %w", err)
		}
		ordersExpired.Inc()
		verificationResults.WithLabelValues("expired").Inc()
		telemetry.Logger.Warn("Callback for expired order",
			zap.String("order_id", cb.OrderID),
			zap.Time("order_created_at", order.CreatedAt),
		)
		return models.ErrOrderExpired
	}

	expected := Signature(v.secret, cb.OrderID, cb.PaymentID)
	if !hmac.Equal([]byte(expected), []byte(cb.Signature)) {
		if err := v.repo.MarkFailed(ctx, cb.OrderID); err != nil {
			return fmt.Errorf("mark order failed: %w", err)
		}
		verificationResults.WithLabelValues("signature_mismatch").Inc()
		telemetry.Logger.Error("Payment signature mismatch",
			zap.String("order_id", cb.OrderID),
			zap.String("payment_id", cb.PaymentID),
			zap.String("signature", maskSignature(cb.Signature)),
		)
		_ = v.events.Publish(ctx, cb.OrderID, map[string]interface{}{
			"type":     "payment.failed",
			"order_id": cb.OrderID,
			"reason":   "signature_mismatch",
		})
		return models.ErrSignatureMismatch
	}

	won, err := v.repo.MarkVerified(ctx, cb.OrderID, cb.PaymentID)
	if err != nil {
		// Includes the unique-index violation when this payment id is
		// already attached to a different order.
		telemetry.Logger.Error("Failed to record verification",
			zap.String("order_id", cb.OrderID),
			zap.String("payment_id", cb.PaymentID),
			zap.Error(err),
		)
		return fmt.Errorf("record verification: %w", err)
	}
	if !won {
		// Lost the race. Re-read and treat a concurrent verification of
		// the same payment as the idempotent path.
		current, err := v.repo.GetByID(ctx, cb.OrderID)
		if err != nil {
			return fmt.Errorf("re-read order: %w", err)
		}
		if current.Status == models.StatusVerified && current.PaymentID == cb.PaymentID {
			verificationResults.WithLabelValues("replay").Inc()
			return nil
		}
		verificationResults.WithLabelValues("conflict").Inc()
		return models.ErrSignatureMismatch
	}

	verificationResults.WithLabelValues("verified").Inc()
	telemetry.Logger.Info("Payment verified",
		zap.String("order_id", cb.OrderID),
		zap.String("payment_id", cb.PaymentID),
		zap.String("signature", maskSignature(cb.Signature)),
	)
	_ = v.events.Publish(ctx, cb.OrderID, map[string]interface{}{
		"type":       "payment.verified",
		"order_id":   cb.OrderID,
		"payment_id": cb.PaymentID,
	})

	return nil
}
