package http

import (
	"testing"
	"time"

	"github.com/ingl3585/xgb-model/pkg/logger"
)

func TestNewServerAppliesTimeouts(t *testing.T) {
	log, err := logger.New(&logger.Config{Level: "error", Format: "console"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}

	s := NewServer(nil, log, WithTimeouts(3*time.Second, 7*time.Second, time.Second))

	if got := s.Echo().Server.ReadTimeout; got != 3*time.Second {
		t.Fatalf("read timeout = %v, want 3s", got)
	}
	if got := s.Echo().Server.WriteTimeout; got != 7*time.Second {
		t.Fatalf("write timeout = %v, want 7s", got)
	}
}
