package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ordersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_orders_created_total",
		Help: "Number of gateway orders opened successfully.",
	})

	verificationResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_verifications_total",
		Help: "Callback verification attempts by outcome.",
	}, []string{"result"})

	ordersExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_orders_expired_total",
		Help: "Orders moved to expired by the sweeper or lazy checks.",
	})
)
