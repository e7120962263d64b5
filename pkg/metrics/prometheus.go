package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	barsIngested     *prometheus.CounterVec
	decisionsTotal   *prometheus.CounterVec
	inputErrors      *prometheus.CounterVec
	trainingTotal    *prometheus.CounterVec
	trainingDuration prometheus.Histogram
	activeSessions   prometheus.Gauge
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		barsIngested: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "xgbmodel_bars_ingested_total",
				Help: "Total bars accepted into session windows",
			},
			[]string{"kind"}, // historical or realtime
		),
		decisionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "xgbmodel_decisions_total",
				Help: "Total decisions emitted by action",
			},
			[]string{"action"},
		),
		inputErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "xgbmodel_input_errors_total",
				Help: "Total rejected input lines by error kind",
			},
			[]string{"kind"},
		),
		trainingTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "xgbmodel_training_total",
				Help: "Total training runs by result",
			},
			[]string{"result"},
		),
		trainingDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "xgbmodel_training_duration_seconds",
				Help:    "Duration of model training runs",
				Buckets: prometheus.DefBuckets,
			},
		),
		activeSessions: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "xgbmodel_active_sessions",
				Help: "Currently connected sessions",
			},
		),
	}
}

// RecordBar records one accepted bar.
func (r *Recorder) RecordBar(kind string) {
	r.barsIngested.WithLabelValues(kind).Inc()
}

// RecordDecision records an emitted decision.
func (r *Recorder) RecordDecision(action string) {
	r.decisionsTotal.WithLabelValues(action).Inc()
}

// RecordInputError records a rejected input line.
func (r *Recorder) RecordInputError(kind string) {
	r.inputErrors.WithLabelValues(kind).Inc()
}

// RecordTraining records a training run and its duration.
func (r *Recorder) RecordTraining(result string, seconds float64) {
	r.trainingTotal.WithLabelValues(result).Inc()
	if result == "ok" {
		r.trainingDuration.Observe(seconds)
	}
}

// SessionOpened increments the active session gauge.
func (r *Recorder) SessionOpened() { r.activeSessions.Inc() }

// SessionClosed decrements the active session gauge.
func (r *Recorder) SessionClosed() { r.activeSessions.Dec() }
