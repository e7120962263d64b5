// Package repository declares the outbound ports the sessions depend on.
package repository

import (
	"context"

	"github.com/ingl3585/xgb-model/internal/domain/models"
)

// AuditSink receives a copy of every emitted decision. Implementations are
// expected to be safe for use from multiple sessions; a sink failure is
// logged, never surfaced to the client.
type AuditSink interface {
	Record(ctx context.Context, event *models.DecisionEvent) error
	Close() error
}

// Metrics abstracts the Prometheus recorder so domain code stays free of
// the client library.
type Metrics interface {
	RecordBar(kind string)
	RecordDecision(action string)
	RecordInputError(kind string)
	RecordTraining(result string, seconds float64)
	SessionOpened()
	SessionClosed()
}

// NopMetrics discards all observations; used in tests.
type NopMetrics struct{}

func (NopMetrics) RecordBar(string)              {}
func (NopMetrics) RecordDecision(string)         {}
func (NopMetrics) RecordInputError(string)       {}
func (NopMetrics) RecordTraining(string, float64) {}
func (NopMetrics) SessionOpened()                {}
func (NopMetrics) SessionClosed()                {}

// NopSink discards audit events; used when auditing is disabled.
type NopSink struct{}

func (NopSink) Record(context.Context, *models.DecisionEvent) error { return nil }
func (NopSink) Close() error                                        { return nil }
