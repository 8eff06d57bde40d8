package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/taskwise-ai/taskwise/internal/assistant"
	"github.com/taskwise-ai/taskwise/internal/audit"
	"github.com/taskwise-ai/taskwise/internal/bulkops"
	"github.com/taskwise-ai/taskwise/internal/conversation"
	"github.com/taskwise-ai/taskwise/internal/db"
	"github.com/taskwise-ai/taskwise/internal/intent"
	"github.com/taskwise-ai/taskwise/internal/oracle"
	"github.com/taskwise-ai/taskwise/internal/reasoning"
	"github.com/taskwise-ai/taskwise/internal/records"
	"github.com/taskwise-ai/taskwise/internal/recovery"
	"github.com/taskwise-ai/taskwise/internal/sources"
)

type downOracle struct{}

func (downOracle) Generate(ctx context.Context, req oracle.Request) (*oracle.Response, error) {
	return nil, errors.New("oracle unavailable")
}

func (downOracle) Name() string { return "down" }

func setupTest(t *testing.T) (*Dashboard, records.Store, *audit.Store) {
	t.Helper()

	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	store := records.NewSQLStore(database, nil)
	trail := audit.NewStore(database)
	conv := conversation.NewManager(15)
	client := downOracle{}
	tracker := sources.NewTracker(5*time.Minute, nil)
	engine := recovery.NewEngine(tracker, nil)

	a := assistant.New(assistant.Deps{
		Oracle:   client,
		Store:    store,
		Conv:     conv,
		Intents:  intent.NewResolver(client, conv, 0.7, nil),
		Planner:  reasoning.NewPlanner(client, 8, nil),
		Executor: reasoning.NewExecutor(client, store, engine, nil),
		Bulk:     bulkops.NewManager(store, tracker, 5*time.Minute, 100, nil),
		Recovery: engine,
		Health:   tracker,
		Trail:    trail,
	})

	d := New(a, store, trail, nil)
	return d, store, trail
}

func setupRouter(d *Dashboard) chi.Router {
	r := chi.NewRouter()
	d.RegisterRoutes(r)
	return r
}

func TestStatsEndpoint(t *testing.T) {
	d, store, _ := setupTest(t)
	r := setupRouter(d)
	ctx := context.Background()

	store.Create(ctx, records.Record{UserID: "alice", Title: "Open task"})
	store.Create(ctx, records.Record{UserID: "alice", Title: "Done task", Status: records.StatusDone})
	store.Create(ctx, records.Record{UserID: "alice", Title: "Standup", Type: records.TypeEvent})
	store.Create(ctx, records.Record{UserID: "bob", Title: "Bob's task"})

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard/stats?user=alice", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var stats statsResponse
	if err := json.NewDecoder(w.Body).Decode(&stats); err != nil {
		t.Fatalf("decoding stats: %v", err)
	}
	if stats.Pending != 2 {
		t.Errorf("pending = %d, want 2 (bob's excluded)", stats.Pending)
	}
	if stats.Done != 1 {
		t.Errorf("done = %d, want 1", stats.Done)
	}
	if stats.Events != 1 {
		t.Errorf("events = %d, want 1", stats.Events)
	}
}

func TestStatsRequiresUser(t *testing.T) {
	d, _, _ := setupTest(t)
	r := setupRouter(d)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/dashboard/stats", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestRecentEndpoint(t *testing.T) {
	d, store, trail := setupTest(t)
	r := setupRouter(d)
	ctx := context.Background()

	store.Create(ctx, records.Record{UserID: "alice", Title: "Recent task"})
	trail.Log(ctx, audit.Entry{ActorType: audit.ActorUser, ActorID: "alice", Action: audit.ActionRequestHandled})

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard/recent?user=alice", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var recent recentResponse
	if err := json.NewDecoder(w.Body).Decode(&recent); err != nil {
		t.Fatalf("decoding recent: %v", err)
	}
	if len(recent.Records) != 1 {
		t.Errorf("expected 1 record, got %d", len(recent.Records))
	}
	if len(recent.Actions) != 1 {
		t.Errorf("expected 1 audit action, got %d", len(recent.Actions))
	}
}

func TestServeIndex(t *testing.T) {
	d, _, _ := setupTest(t)
	r := setupRouter(d)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "taskwise") {
		t.Error("index page should mention taskwise")
	}
}

func TestWebSocketChat(t *testing.T) {
	d, store, _ := setupTest(t)
	store.Create(context.Background(), records.Record{UserID: "alice", Title: "Sprint planning"})

	srv := httptest.NewServer(setupRouter(d))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chat"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dialing websocket: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(chatRequest{Type: "message", UserID: "alice", Content: "what sprint tasks do I have?"}); err != nil {
		t.Fatalf("writing message: %v", err)
	}

	var resp chatResponse
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("reading response: %v", err)
	}
	if resp.Type != "response" {
		t.Errorf("type = %q: %q", resp.Type, resp.Content)
	}
	if resp.Content == "" {
		t.Error("expected a non-empty reply")
	}
	if resp.HTML == "" {
		t.Error("expected the reply rendered to HTML")
	}
}

func TestWebSocketRejectsMissingUser(t *testing.T) {
	d, _, _ := setupTest(t)
	srv := httptest.NewServer(setupRouter(d))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chat"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dialing websocket: %v", err)
	}
	defer conn.Close()

	conn.WriteJSON(chatRequest{Type: "message", Content: "hello"})

	var resp chatResponse
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("reading response: %v", err)
	}
	if resp.Type != "error" {
		t.Errorf("expected error response, got %+v", resp)
	}
}
