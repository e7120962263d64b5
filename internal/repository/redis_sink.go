package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/ingl3585/xgb-model/internal/domain/models"
	"github.com/ingl3585/xgb-model/pkg/logger"
)

// RedisSink broadcasts decision events over a pub/sub channel for live
// subscribers. Events are not retained; absent subscribers miss them.
type RedisSink struct {
	client  *redis.Client
	channel string
	log     *logger.Logger
}

// NewRedisSink pings the server and returns the sink.
func NewRedisSink(ctx context.Context, client *redis.Client, channel string, log *logger.Logger) (*RedisSink, error) {
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisSink{client: client, channel: channel, log: log}, nil
}

// Record publishes one decision event as JSON.
func (s *RedisSink) Record(ctx context.Context, event *models.DecisionEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal decision: %w", err)
	}
	if err := s.client.Publish(ctx, s.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish decision: %w", err)
	}
	return nil
}

// Close closes the redis client.
func (s *RedisSink) Close() error {
	return s.client.Close()
}
