// Package repository implements the audit sinks behind the domain ports.
package repository

import (
	"context"

	"github.com/ingl3585/xgb-model/internal/domain/models"
	"github.com/ingl3585/xgb-model/pkg/kafka"
	"github.com/ingl3585/xgb-model/pkg/logger"
)

// KafkaSink publishes decision events to a Kafka topic, keyed by session
// so one session's decisions stay ordered within a partition.
type KafkaSink struct {
	producer *kafka.Producer
	topic    string
	log      *logger.Logger
}

// NewKafkaSink wraps an existing producer.
func NewKafkaSink(producer *kafka.Producer, topic string, log *logger.Logger) *KafkaSink {
	return &KafkaSink{producer: producer, topic: topic, log: log}
}

// Record publishes one decision event as JSON.
func (s *KafkaSink) Record(ctx context.Context, event *models.DecisionEvent) error {
	return s.producer.Publish(ctx, s.topic, []byte(event.SessionID), event)
}

// Close flushes and closes the underlying producer.
func (s *KafkaSink) Close() error {
	return s.producer.Close()
}
