package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/littleworld/payment-service/internal/api"
	"github.com/littleworld/payment-service/internal/catalog"
	"github.com/littleworld/payment-service/internal/config"
	"github.com/littleworld/payment-service/internal/events"
	"github.com/littleworld/payment-service/internal/gateway"
	"github.com/littleworld/payment-service/internal/repository"
	"github.com/littleworld/payment-service/internal/service"
	"github.com/littleworld/payment-service/internal/telemetry"
)

func main() {
	// Initialize telemetry
	if err := telemetry.InitTelemetry("payment-service"); err != nil {
		panic(fmt.Sprintf("Failed to initialize telemetry: %v", err))
	}
	defer telemetry.Shutdown(context.Background())

	telemetry.Logger.Info("Starting Payment Service")

	cfg := config.Load()
	if cfg.RazorpayKeySecret == "" {
		telemetry.Logger.Fatal("RAZORPAY_KEY_SECRET is not set")
	}

	// Connect to PostgreSQL
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		telemetry.Logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Initialize database
	orderRepo := repository.NewOrderRepository(db)
	if err := orderRepo.InitDB(); err != nil {
		telemetry.Logger.Fatal("Failed to initialize database", zap.Error(err))
	}

	priceCatalog := catalog.NewCatalog(db)
	if err := priceCatalog.InitDB(); err != nil {
		telemetry.Logger.Fatal("Failed to initialize catalog", zap.Error(err))
	}

	// Connect to Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.RedisURL,
	})

	// Connect to Kafka
	publisher := events.NewKafkaPublisher(cfg.KafkaBrokers)
	defer publisher.Close()

	// Gateway client
	rzp := gateway.NewRazorpayGateway(cfg.RazorpayKeyID, cfg.RazorpayKeySecret, cfg.GatewayTimeout)

	intent := service.NewOrderIntentBuilder(
		orderRepo, priceCatalog, rzp, publisher,
		cfg.Currency, cfg.ShippingFee, cfg.TaxBps, cfg.GatewayTimeout,
	)
	verifier := service.NewCallbackVerifier(
		orderRepo, publisher, redisClient,
		cfg.RazorpayKeySecret, cfg.OrderExpiry,
	)

	// Start expiry sweeper
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	sweeper := service.NewExpirySweeper(orderRepo, cfg.OrderExpiry, cfg.SweepInterval)
	go sweeper.Run(sweepCtx)

	r := api.NewRouter(intent, verifier, orderRepo, redisClient)

	// Setup HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	// Start server in goroutine
	go func() {
		telemetry.Logger.Info("Payment Service starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			telemetry.Logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	telemetry.Logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		telemetry.Logger.Error("Server forced to shutdown", zap.Error(err))
	}

	telemetry.Logger.Info("Server exited")
}
