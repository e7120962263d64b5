package di

import (
	"context"
	"fmt"
	"time"

	domainrepo "github.com/ingl3585/xgb-model/internal/domain/repository"
	"github.com/ingl3585/xgb-model/internal/features"
	"github.com/ingl3585/xgb-model/internal/handler/api"
	"github.com/ingl3585/xgb-model/internal/policy"
	internalrepo "github.com/ingl3585/xgb-model/internal/repository"
	tcpserver "github.com/ingl3585/xgb-model/internal/server"
	"github.com/ingl3585/xgb-model/internal/session"
	"github.com/ingl3585/xgb-model/pkg/config"
	xhttp "github.com/ingl3585/xgb-model/pkg/http"
	applogger "github.com/ingl3585/xgb-model/pkg/logger"
	"github.com/ingl3585/xgb-model/pkg/metrics"
	"github.com/ingl3585/xgb-model/pkg/server"
)

// ProvideLogger builds the process logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
}

// ProvideMetrics creates the Prometheus recorder.
func ProvideMetrics() domainrepo.Metrics {
	return metrics.New()
}

// ProvideHub creates the decision websocket hub when the admin surface
// is enabled; nil otherwise.
func ProvideHub(cfg *config.Config, log *applogger.Logger) *api.DecisionHub {
	if !cfg.Admin.Enabled {
		return nil
	}
	return api.NewDecisionHub(log)
}

// ProvideHistory creates the in-memory recent-decision store.
func ProvideHistory() *internalrepo.DecisionHistory {
	return internalrepo.NewDecisionHistory(100, 128)
}

// ProvideAuditSink builds the configured backend sink and fans it out to
// the websocket hub and the admin history.
func ProvideAuditSink(cfg *config.Config, log *applogger.Logger, hub *api.DecisionHub, history *internalrepo.DecisionHistory) (domainrepo.AuditSink, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	backend, err := internalrepo.NewAuditSink(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("audit sink: %w", err)
	}

	sinks := []domainrepo.AuditSink{backend, history}
	if hub != nil {
		sinks = append(sinks, hub)
	}
	return internalrepo.NewFanoutSink(sinks...), nil
}

// ProvideSessionConfig maps config onto the per-session settings.
func ProvideSessionConfig(cfg *config.Config) session.Config {
	return session.Config{
		Delimiter:        cfg.Protocol.Delimiter,
		LearningResponse: cfg.Protocol.LearningResponse,
		WindowSize:       cfg.Training.WindowSize,
		RetrainInterval:  cfg.Training.RetrainInterval,
		Features: features.Config{
			RSIPeriod:            cfg.Training.RSIPeriod,
			EMAFast:              cfg.Training.EMAFast,
			EMASlow:              cfg.Training.EMASlow,
			PriceChangeThreshold: cfg.Training.PriceChangeThreshold,
		},
		TrainerMinRows: cfg.Training.MinRows,
		TrainerEpochs:  cfg.Training.Epochs,
		TrainerRate:    cfg.Training.LearningRate,
		Policy: policy.Config{
			DefaultThreshold: cfg.Policy.DefaultThreshold,
			MinThreshold:     cfg.Policy.MinThreshold,
			MaxThreshold:     cfg.Policy.MaxThreshold,
			HistoryCapacity:  cfg.Policy.HistoryCapacity,
			VolatilityFilter: cfg.Policy.VolatilityFilter,
			RangeFilter:      cfg.Policy.RangeFilter,
			RangeProximity:   cfg.Policy.RangeProximity,
			Lookback:         cfg.Policy.Lookback,
		},
	}
}

// ProvideManager creates the TCP manager.
func ProvideManager(cfg *config.Config, sessionCfg session.Config, log *applogger.Logger, m domainrepo.Metrics, sink domainrepo.AuditSink) *tcpserver.Manager {
	return tcpserver.NewManager(
		tcpserver.Config{
			Host:            cfg.Server.Host,
			Port:            cfg.Server.Port,
			ReadBufferSize:  cfg.Server.ReadBufferSize,
			ReadTimeout:     cfg.Server.ReadTimeout,
			ShutdownTimeout: cfg.Server.ShutdownTimeout,
		},
		sessionCfg, log, m, sink,
	)
}

// ProvideStatusHandler creates the admin route handler.
func ProvideStatusHandler(log *applogger.Logger, manager *tcpserver.Manager, history *internalrepo.DecisionHistory, hub *api.DecisionHub) *api.StatusHandler {
	return api.NewStatusHandler(log, manager, history, hub)
}

// ProvideHTTPServer creates the admin HTTP server when enabled; nil
// otherwise.
func ProvideHTTPServer(cfg *config.Config, handler *api.StatusHandler, log *applogger.Logger) *xhttp.Server {
	if !cfg.Admin.Enabled {
		return nil
	}
	return xhttp.NewServer(handler, log,
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Admin.Port),
		xhttp.WithTimeouts(cfg.Admin.ReadTimeout, cfg.Admin.WriteTimeout, cfg.Server.ShutdownTimeout),
	)
}

// ProvideApp assembles the application.
func ProvideApp(cfg *config.Config, log *applogger.Logger, manager *tcpserver.Manager, httpServer *xhttp.Server, hub *api.DecisionHub, sink domainrepo.AuditSink) *server.App {
	return server.New(cfg, log, manager, httpServer, hub, sink)
}
