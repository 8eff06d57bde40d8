package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/taskwise-ai/taskwise/internal/db"
	"github.com/taskwise-ai/taskwise/internal/sources"
)

func setupServer(t *testing.T) *Server {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	tracker := sources.NewTracker(5*time.Minute, nil)
	return New(Config{Port: 0}, database, tracker, nil)
}

func TestHealthz(t *testing.T) {
	s := setupServer(t)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestIntegrationsEndpoint(t *testing.T) {
	s := setupServer(t)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/integrations/alice", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var statuses []struct {
		Source    string `json:"source"`
		Available bool   `json:"available"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&statuses); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(statuses) != len(sources.Names()) {
		t.Errorf("expected a status per registered source, got %d", len(statuses))
	}
	for _, st := range statuses {
		if !st.Available {
			t.Errorf("unprobed source %q should default to available", st.Source)
		}
	}
}
