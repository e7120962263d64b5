// Package server ties the TCP manager, admin HTTP server, and audit
// plumbing into one process lifecycle.
package server

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/ingl3585/xgb-model/internal/handler/api"
	tcpserver "github.com/ingl3585/xgb-model/internal/server"
	"github.com/ingl3585/xgb-model/pkg/config"
	xhttp "github.com/ingl3585/xgb-model/pkg/http"
	"github.com/ingl3585/xgb-model/pkg/logger"
)

// Closer releases one infrastructure resource on shutdown.
type Closer interface {
	Close() error
}

// App encapsulates the application lifecycle.
type App struct {
	cfg        *config.Config
	log        *logger.Logger
	manager    *tcpserver.Manager
	httpServer *xhttp.Server
	hub        *api.DecisionHub
	closers    []Closer
}

// New wires the already-constructed components into an App. httpServer
// and hub may be nil when the admin surface is disabled.
func New(cfg *config.Config, log *logger.Logger, manager *tcpserver.Manager, httpServer *xhttp.Server, hub *api.DecisionHub, closers ...Closer) *App {
	return &App{
		cfg:        cfg,
		log:        log,
		manager:    manager,
		httpServer: httpServer,
		hub:        hub,
		closers:    closers,
	}
}

// Run starts everything and blocks until SIGINT/SIGTERM, then drains.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if a.hub != nil {
		go a.hub.Run(ctx)
	}

	if err := a.manager.Start(ctx); err != nil {
		return err
	}

	if a.httpServer != nil {
		if err := a.httpServer.Start(); err != nil {
			return err
		}
	}

	a.log.Info("started",
		logger.String("env", a.cfg.Environment),
		logger.String("audit_backend", a.cfg.Audit.Backend),
	)

	<-ctx.Done()
	a.log.Info("shutdown signal received")
	return a.shutdown()
}

func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.manager.Stop(ctx); err != nil {
		a.log.Warn("tcp drain incomplete", logger.Error(err))
	}

	if a.httpServer != nil {
		if err := a.httpServer.Stop(ctx); err != nil {
			a.log.Warn("admin http stop error", logger.Error(err))
		}
	}

	if a.hub != nil {
		_ = a.hub.Close()
	}

	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.log.Warn("close error", logger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
