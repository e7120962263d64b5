package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricsOnce     sync.Once
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	inFlight        prometheus.Gauge
)

func initMetrics() {
	metricsOnce.Do(func() {
		requestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "xgbmodel_http_requests_total",
				Help: "Total HTTP requests served by the admin API",
			},
			[]string{"route", "method", "status"},
		)
		requestDuration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "xgbmodel_http_request_duration_seconds",
				Help:    "Admin API request latency",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
			[]string{"route", "method"},
		)
		inFlight = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "xgbmodel_http_in_flight_requests",
				Help: "Admin API requests currently being served",
			},
		)
	})
}

// Metrics records request counts, latency, and in-flight gauge per route.
func Metrics() echo.MiddlewareFunc {
	initMetrics()
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method

			inFlight.Inc()
			start := time.Now()
			err := next(c)
			inFlight.Dec()

			requestDuration.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
			requestsTotal.WithLabelValues(route, method, strconv.Itoa(c.Response().Status)).Inc()
			return err
		}
	}
}
