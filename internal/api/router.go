package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/littleworld/payment-service/internal/handlers"
	"github.com/littleworld/payment-service/internal/interfaces"
	"github.com/littleworld/payment-service/internal/middleware"
	"github.com/littleworld/payment-service/internal/service"
	"github.com/littleworld/payment-service/internal/telemetry"
)

func NewRouter(
	intent *service.OrderIntentBuilder,
	verifier *service.CallbackVerifier,
	orderRepo interfaces.OrderRepository,
	redisClient *redis.Client,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(telemetry.TracingMiddleware())

	// Prometheus metrics
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "payment-service"})
	})

	// Payment routes
	paymentHandler := handlers.NewPaymentHandler(intent, verifier, orderRepo, redisClient)
	payment := r.Group("/payment")
	{
		payment.POST("/order", middleware.ReceiptIdempotency(redisClient, orderRepo), paymentHandler.CreateOrder)
		payment.POST("/verify", paymentHandler.VerifyPayment)
		payment.GET("/orders/:id", paymentHandler.GetOrder)
	}

	return r
}
