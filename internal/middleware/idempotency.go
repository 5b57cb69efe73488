package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/littleworld/payment-service/internal/interfaces"
	"github.com/littleworld/payment-service/internal/models"
)

// ReceiptIdempotency short-circuits retried checkout attempts: when the
// client resends its receipt id, the existing gateway order is returned
// and no second order is opened. The header is optional — a request
// without it gets a server-generated receipt downstream.
func ReceiptIdempotency(redisClient *redis.Client, orderRepo interfaces.OrderRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		receiptID := c.GetHeader("Idempotency-Key")
		if receiptID == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()

		// Check Redis cache
		if redisClient != nil {
			cached, err := redisClient.Get(ctx, fmt.Sprintf("receipt:%s", receiptID)).Result()
			if err == nil {
				var order models.PaymentOrder
				if err := json.Unmarshal([]byte(cached), &order); err == nil {
					c.JSON(http.StatusOK, models.CreateOrderResponse{
						OrderID:  order.ID,
						Amount:   order.Amount,
						Currency: order.Currency,
					})
					c.Abort()
					return
				}
			}
		}

		// Check database
		order, err := orderRepo.GetByReceiptID(ctx, receiptID)
		if err == nil && order != nil {
			c.JSON(http.StatusOK, models.CreateOrderResponse{
				OrderID:  order.ID,
				Amount:   order.Amount,
				Currency: order.Currency,
			})
			c.Abort()
			return
		}

		c.Set("receipt_id", receiptID)
		c.Next()
	}
}
