package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ingl3585/xgb-model/internal/domain/models"
	"github.com/ingl3585/xgb-model/internal/repository"
	"github.com/ingl3585/xgb-model/internal/server"
)

type fakeLister struct {
	infos []server.SessionInfo
}

func (f fakeLister) Sessions() []server.SessionInfo { return f.infos }

func TestStatusRoutes(t *testing.T) {
	lister := fakeLister{infos: []server.SessionInfo{
		{ID: "s-1", RemoteAddr: "10.0.0.1:1234", Phase: "ready", Bars: 42, Started: time.Now()},
	}}
	h := NewStatusHandler(testLog(t), lister, nil, nil)

	e := echo.New()
	h.RegisterRoutes(e)
	srv := httptest.NewServer(e)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status %d", resp.StatusCode)
	}

	resp2, err := http.Get(srv.URL + "/api/sessions")
	if err != nil {
		t.Fatal(err)
	}
	defer resp2.Body.Close()

	var body struct {
		Status int `json:"status"`
		Data   struct {
			Count    int                  `json:"count"`
			Sessions []server.SessionInfo `json:"sessions"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp2.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Data.Count != 1 || len(body.Data.Sessions) != 1 {
		t.Fatalf("unexpected sessions payload: %+v", body.Data)
	}
	if body.Data.Sessions[0].ID != "s-1" || body.Data.Sessions[0].Phase != "ready" {
		t.Fatalf("unexpected session: %+v", body.Data.Sessions[0])
	}
}

func TestStatusDecisionsRoute(t *testing.T) {
	history := repository.NewDecisionHistory(10, 10)
	_ = history.Record(context.Background(), &models.DecisionEvent{SessionID: "s-1", Action: models.ActionBuy})
	h := NewStatusHandler(testLog(t), fakeLister{}, history, nil)

	e := echo.New()
	h.RegisterRoutes(e)
	srv := httptest.NewServer(e)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/sessions/s-1/decisions")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var body struct {
		Status int `json:"status"`
		Data   struct {
			Count     int                     `json:"count"`
			Decisions []*models.DecisionEvent `json:"decisions"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Data.Count != 1 || body.Data.Decisions[0].Action != models.ActionBuy {
		t.Fatalf("unexpected decisions payload: %+v", body.Data)
	}

	resp2, err := http.Get(srv.URL + "/api/sessions/ghost/decisions")
	if err != nil {
		t.Fatal(err)
	}
	defer resp2.Body.Close()
	var nf struct {
		Status int `json:"status"`
	}
	if err := json.NewDecoder(resp2.Body).Decode(&nf); err != nil {
		t.Fatal(err)
	}
	if nf.Status != http.StatusNotFound {
		t.Fatalf("expected 404 envelope, got %d", nf.Status)
	}
}
