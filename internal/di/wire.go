//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"github.com/ingl3585/xgb-model/pkg/config"
	"github.com/ingl3585/xgb-model/pkg/server"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire generates the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Audit plumbing
		ProvideHub,
		ProvideHistory,
		ProvideAuditSink,

		// Serving
		ProvideSessionConfig,
		ProvideManager,
		ProvideStatusHandler,
		ProvideHTTPServer,

		ProvideApp,
	)
	return &server.App{}, nil
}
