package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/littleworld/payment-service/internal/interfaces"
	"github.com/littleworld/payment-service/internal/models"
	"github.com/littleworld/payment-service/internal/service"
	"github.com/littleworld/payment-service/internal/telemetry"
)

// userFacingMessage deliberately says nothing about signatures or
// order existence; callback rejections all read the same to the user.
const userFacingMessage = "payment could not be confirmed"

type PaymentHandler struct {
	intent      *service.OrderIntentBuilder
	verifier    *service.CallbackVerifier
	repo        interfaces.OrderRepository
	redisClient *redis.Client
}

func NewPaymentHandler(
	intent *service.OrderIntentBuilder,
	verifier *service.CallbackVerifier,
	repo interfaces.OrderRepository,
	redisClient *redis.Client,
) *PaymentHandler {
	return &PaymentHandler{
		intent:      intent,
		verifier:    verifier,
		repo:        repo,
		redisClient: redisClient,
	}
}

func (h *PaymentHandler) CreateOrder(c *gin.Context) {
	ctx := c.Request.Context()
	span := trace.SpanFromContext(ctx)

	var req models.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		telemetry.Logger.Warn("Invalid order request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_amount", "message": err.Error()})
		return
	}

	if req.ReceiptID == "" {
		req.ReceiptID = c.GetString("receipt_id")
	}

	telemetry.Logger.Info("Creating payment order",
		zap.Int("items", len(req.Items)),
		zap.String("receipt_id", req.ReceiptID),
		zap.String("trace_id", span.SpanContext().TraceID().String()),
	)

	order, err := h.intent.Build(ctx, req)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrInvalidAmount):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_amount", "message": "order total could not be validated"})
		case errors.Is(err, models.ErrGatewayUnavailable):
			c.JSON(http.StatusBadGateway, gin.H{"error": "gateway_unavailable", "message": "payment gateway is unavailable, try again"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal", "message": "failed to create order"})
		}
		return
	}

	// Cache in Redis for the idempotency middleware
	if h.redisClient != nil {
		orderJSON, _ := json.Marshal(order)
		h.redisClient.Set(ctx, fmt.Sprintf("receipt:%s", order.ReceiptID), orderJSON, 24*time.Hour)
	}

	c.JSON(http.StatusOK, models.CreateOrderResponse{
		OrderID:  order.ID,
		Amount:   order.Amount,
		Currency: order.Currency,
	})
}

func (h *PaymentHandler) VerifyPayment(c *gin.Context) {
	var cb models.PaymentCallback
	if err := c.ShouldBindJSON(&cb); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed_callback", "message": userFacingMessage})
		return
	}

	err := h.verifier.Verify(c.Request.Context(), cb)
	if err == nil {
		c.JSON(http.StatusOK, gin.H{"verified": true})
		return
	}

	switch {
	case errors.Is(err, models.ErrMalformedCallback):
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed_callback", "message": userFacingMessage})
	case errors.Is(err, models.ErrUnknownOrder):
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown_order", "message": userFacingMessage})
	case errors.Is(err, models.ErrOrderExpired):
		c.JSON(http.StatusConflict, gin.H{"error": "order_expired", "message": userFacingMessage})
	case errors.Is(err, models.ErrSignatureMismatch):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "signature_mismatch", "message": userFacingMessage})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal", "message": userFacingMessage})
	}
}

func (h *PaymentHandler) GetOrder(c *gin.Context) {
	id := c.Param("id")

	order, err := h.repo.GetByID(c.Request.Context(), id)
	if errors.Is(err, models.ErrUnknownOrder) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown_order"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal", "message": "failed to fetch order"})
		return
	}

	c.JSON(http.StatusOK, order)
}
