package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/ingl3585/xgb-model/internal/domain/models"
	domainrepo "github.com/ingl3585/xgb-model/internal/domain/repository"
	"github.com/ingl3585/xgb-model/pkg/clickhouse"
	"github.com/ingl3585/xgb-model/pkg/config"
	"github.com/ingl3585/xgb-model/pkg/kafka"
	"github.com/ingl3585/xgb-model/pkg/logger"
)

// NewAuditSink builds the sink selected by audit.backend. The "none"
// backend returns a no-op sink.
func NewAuditSink(ctx context.Context, cfg *config.Config, log *logger.Logger) (domainrepo.AuditSink, error) {
	switch cfg.Audit.Backend {
	case "", "none":
		return domainrepo.NopSink{}, nil

	case "kafka":
		kc := cfg.Audit.Kafka
		producer, err := kafka.NewProducer(
			kafka.WithBrokers(kc.Brokers),
			kafka.WithRequiredAcks(kc.RequiredAcks),
			kafka.WithCompression(kc.Compression),
			kafka.WithMaxAttempts(kc.MaxAttempts),
			kafka.WithBatchTimeout(kc.Linger),
			kafka.WithWriteTimeout(kc.WriteTimeout),
			kafka.WithAsync(kc.Async),
			kafka.WithHashByKey(true),
		)
		if err != nil {
			return nil, fmt.Errorf("kafka audit sink: %w", err)
		}
		return NewKafkaSink(producer, kc.Topic, log), nil

	case "clickhouse":
		cc := cfg.Audit.ClickHouse
		client, err := clickhouse.NewClient(
			clickhouse.WithAddr(cc.Host, cc.Port),
			clickhouse.WithDatabase(cc.Database),
			clickhouse.WithCredentials(cc.User, cc.Password),
			clickhouse.WithTimeouts(cc.DialTimeout, cc.ReadTimeout),
			clickhouse.WithAsyncInsert(cc.AsyncInsert, cc.WaitForAsync),
		)
		if err != nil {
			return nil, fmt.Errorf("clickhouse audit sink: %w", err)
		}
		sink, err := NewClickHouseSink(ctx, client, cc.Table, log)
		if err != nil {
			_ = client.Close()
			return nil, err
		}
		return sink, nil

	case "redis":
		rc := cfg.Audit.Redis
		client := redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%d", rc.Host, rc.Port),
			Password: rc.Password,
			DB:       rc.DB,
		})
		sink, err := NewRedisSink(ctx, client, rc.Channel, log)
		if err != nil {
			_ = client.Close()
			return nil, err
		}
		return sink, nil

	default:
		return nil, fmt.Errorf("unknown audit backend %q", cfg.Audit.Backend)
	}
}

// FanoutSink delivers every event to all child sinks.
type FanoutSink struct {
	sinks []domainrepo.AuditSink
}

// NewFanoutSink flattens nested fanouts and skips nil children.
func NewFanoutSink(sinks ...domainrepo.AuditSink) *FanoutSink {
	out := make([]domainrepo.AuditSink, 0, len(sinks))
	for _, s := range sinks {
		if s == nil {
			continue
		}
		if f, ok := s.(*FanoutSink); ok {
			out = append(out, f.sinks...)
			continue
		}
		out = append(out, s)
	}
	return &FanoutSink{sinks: out}
}

// Record fans the event out; all sinks see it even when some fail.
func (f *FanoutSink) Record(ctx context.Context, event *models.DecisionEvent) error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.Record(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every child sink.
func (f *FanoutSink) Close() error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
