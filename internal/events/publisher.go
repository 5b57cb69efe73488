package events

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/littleworld/payment-service/internal/telemetry"
)

const Topic = "payment.events"

// KafkaPublisher emits one JSON message per order state change, keyed
// by order id so all events for an order land on the same partition.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers),
			Topic:    Topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, orderID string, event map[string]interface{}) error {
	eventJSON, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(orderID),
		Value: eventJSON,
	}); err != nil {
		telemetry.Logger.Error("Failed to publish payment event",
			zap.String("order_id", orderID),
			zap.Error(err),
		)
		return err
	}

	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
