package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	DatabaseURL       string
	RedisURL          string
	KafkaBrokers      string
	OTLPEndpoint      string
	Port              string
	RazorpayKeyID     string
	RazorpayKeySecret string
	Currency          string
	ShippingFee       int64
	TaxBps            int64
	OrderExpiry       time.Duration
	GatewayTimeout    time.Duration
	SweepInterval     time.Duration
}

func Load() *Config {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8081"
	}

	currency := os.Getenv("CURRENCY")
	if currency == "" {
		currency = "INR"
	}

	return &Config{
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		RedisURL:          os.Getenv("REDIS_URL"),
		KafkaBrokers:      os.Getenv("KAFKA_BROKERS"),
		OTLPEndpoint:      os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		Port:              port,
		RazorpayKeyID:     os.Getenv("RAZORPAY_KEY_ID"),
		RazorpayKeySecret: os.Getenv("RAZORPAY_KEY_SECRET"),
		Currency:          currency,
		ShippingFee:       envInt64("SHIPPING_FEE", 0),
		TaxBps:            envInt64("TAX_BPS", 0),
		OrderExpiry:       envDuration("ORDER_EXPIRY", 30*time.Minute),
		GatewayTimeout:    envDuration("GATEWAY_TIMEOUT", 10*time.Second),
		SweepInterval:     envDuration("SWEEP_INTERVAL", 5*time.Minute),
	}
}

func envInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
