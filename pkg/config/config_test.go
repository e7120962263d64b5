package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("defaults failed validation: %v", err)
	}
	if c.Server.Port != 9999 {
		t.Fatalf("unexpected default port %d", c.Server.Port)
	}
	if c.Protocol.Delimiter != "||" {
		t.Fatalf("unexpected default delimiter %q", c.Protocol.Delimiter)
	}
	if c.Training.WindowSize != 5000 || c.Training.RetrainInterval != 100 || c.Training.MinRows != 100 {
		t.Fatalf("unexpected training defaults: %+v", c.Training)
	}
	if c.Policy.DefaultThreshold != 0.55 || c.Policy.MinThreshold != 0.5 || c.Policy.MaxThreshold != 0.7 {
		t.Fatalf("unexpected policy defaults: %+v", c.Policy)
	}
	if c.Audit.Backend != "none" {
		t.Fatalf("unexpected audit backend %q", c.Audit.Backend)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "environment: prod\nserver:\n  port: 7777\nprotocol:\n  delimiter: \"##\"\ntraining:\n  window_size: 500\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Server.Port != 7777 || c.Protocol.Delimiter != "##" || c.Training.WindowSize != 500 {
		t.Fatalf("overrides not applied: %+v", c)
	}
	// untouched fields still defaulted
	if c.Training.RetrainInterval != 100 {
		t.Fatalf("default lost: %d", c.Training.RetrainInterval)
	}
}

func TestValidateRejectsBadThresholdBand(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatal(err)
	}
	c.Policy.MinThreshold = 0.8
	if err := c.Validate(); err == nil {
		t.Fatalf("expected min>max rejection")
	}
}

func TestValidateRejectsKafkaWithoutBrokers(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatal(err)
	}
	c.Audit.Backend = "kafka"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected missing brokers rejection")
	}
}

func TestValidateRejectsUnknownBackend(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatal(err)
	}
	c.Audit.Backend = "postgres"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected unknown backend rejection")
	}
}

func TestLoadWithEnvOverride(t *testing.T) {
	t.Setenv("LISTEN_PORT", "6001")
	t.Setenv("AUDIT_BACKEND", "none")
	c, err := LoadWithEnv("")
	if err != nil {
		t.Fatalf("load with env: %v", err)
	}
	if c.Server.Port != 6001 {
		t.Fatalf("env port not applied: %d", c.Server.Port)
	}
}
