package main

import (
	"flag"
	"log"
	"os"

	"github.com/ingl3585/xgb-model/internal/di"
	"github.com/ingl3585/xgb-model/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s listen=%s:%d audit=%s",
		cfg.Environment, cfg.Server.Host, cfg.Server.Port, cfg.Audit.Backend)

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
