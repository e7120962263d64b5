package repository

import (
	"context"
	"fmt"

	"github.com/ingl3585/xgb-model/internal/domain/models"
	"github.com/ingl3585/xgb-model/pkg/clickhouse"
	"github.com/ingl3585/xgb-model/pkg/logger"
)

// ClickHouseSink appends decision events to a MergeTree table. Inserts
// are one row per decision; async_insert on the client keeps them cheap.
type ClickHouseSink struct {
	client *clickhouse.Client
	table  string
	log    *logger.Logger
}

// NewClickHouseSink ensures the decisions table exists and returns the sink.
func NewClickHouseSink(ctx context.Context, client *clickhouse.Client, table string, log *logger.Logger) (*ClickHouseSink, error) {
	s := &ClickHouseSink{client: client, table: table, log: log}
	if err := client.InitSchema(ctx, []string{s.ddl()}); err != nil {
		return nil, fmt.Errorf("decisions schema: %w", err)
	}
	return s, nil
}

func (s *ClickHouseSink) ddl() string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		session_id  String,
		remote_addr String,
		ts          DateTime64(3),
		bar_time    DateTime64(3),
		close       Float64,
		action      LowCardinality(String),
		class       UInt8,
		probability Float64,
		threshold   Float64,
		reason      String
	) ENGINE = MergeTree()
	ORDER BY (session_id, ts)`, s.table)
}

// Record inserts one decision row.
func (s *ClickHouseSink) Record(ctx context.Context, event *models.DecisionEvent) error {
	query := fmt.Sprintf(
		"INSERT INTO %s (session_id, remote_addr, ts, bar_time, close, action, class, probability, threshold, reason) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		s.table,
	)
	_, err := s.client.DB().ExecContext(ctx, query,
		event.SessionID,
		event.RemoteAddr,
		event.Timestamp,
		event.BarTime,
		event.Close,
		string(event.Action),
		uint8(event.Class),
		event.Probability,
		event.Threshold,
		event.Reason,
	)
	if err != nil {
		return fmt.Errorf("insert decision: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *ClickHouseSink) Close() error {
	return s.client.Close()
}
