package sink

import (
	"context"
	"encoding/json"
	"fmt"

	kafka "github.com/segmentio/kafka-go"

	audit "riskgate/pkg/platform/audit"
)

// KafkaSink ships audit events to a broker topic, keyed by tenant so one
// tenant's events stay ordered within a partition.
type KafkaSink struct {
	writer *kafka.Writer
}

func NewKafkaSink(brokerURL, topic string) *KafkaSink {
	return &KafkaSink{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokerURL),
			Topic:    topic,
			Balancer: &kafka.Hash{},
		},
	}
}

func (s *KafkaSink) Deliver(ctx context.Context, event audit.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode audit event: %w", err)
	}
	err = s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.TenantID),
		Value: data,
	})
	if err != nil {
		return fmt.Errorf("deliver audit event: %w", err)
	}
	return nil
}

func (s *KafkaSink) Close() error { return s.writer.Close() }
