package audit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/taskwise-ai/taskwise/internal/db"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewStore(database)
}

func TestLogAndGetByID(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	entry := Entry{
		ID:              "e1",
		ActorType:       ActorAssistant,
		ActorID:         "alice",
		Action:          ActionBulkConfirmed,
		OperationID:     "op-123",
		Summary:         "confirmed bulk status update",
		Detail:          "3 records marked done",
		AffectedRecords: []string{"r1", "r2", "r3"},
	}
	if err := store.Log(ctx, entry); err != nil {
		t.Fatalf("Log: %v", err)
	}

	got, err := store.GetByID(ctx, "e1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Action != ActionBulkConfirmed || got.ActorID != "alice" {
		t.Errorf("unexpected entry: %+v", got)
	}
	if got.OperationID != "op-123" {
		t.Errorf("operation id = %q", got.OperationID)
	}
	if len(got.AffectedRecords) != 3 {
		t.Errorf("affected records = %v", got.AffectedRecords)
	}
	if got.Timestamp.IsZero() {
		t.Error("expected database-assigned timestamp")
	}
}

func TestLogGeneratesID(t *testing.T) {
	store := setupStore(t)

	if err := store.Log(context.Background(), Entry{
		ActorType: ActorUser,
		ActorID:   "alice",
		Action:    ActionRequestHandled,
	}); err != nil {
		t.Fatalf("Log: %v", err)
	}

	entries, err := store.Query(context.Background(), QueryFilter{ActorID: "alice"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(entries) != 1 || entries[0].ID == "" {
		t.Errorf("expected one entry with a generated ID, got %+v", entries)
	}
}

func TestQueryFilters(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	store.Log(ctx, Entry{ActorType: ActorUser, ActorID: "alice", Action: ActionRequestHandled})
	store.Log(ctx, Entry{ActorType: ActorAssistant, ActorID: "alice", Action: ActionBulkPlanned, OperationID: "op-1"})
	store.Log(ctx, Entry{ActorType: ActorAssistant, ActorID: "alice", Action: ActionBulkConfirmed, OperationID: "op-1", AffectedRecords: []string{"r9"}})
	store.Log(ctx, Entry{ActorType: ActorUser, ActorID: "bob", Action: ActionRequestHandled})

	byActor, err := store.Query(ctx, QueryFilter{ActorID: "alice"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(byActor) != 3 {
		t.Errorf("actor filter: got %d entries", len(byActor))
	}

	byOp, err := store.Query(ctx, QueryFilter{OperationID: "op-1"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(byOp) != 2 {
		t.Errorf("operation filter: got %d entries, want the plan and its confirmation", len(byOp))
	}

	byRecord, err := store.Query(ctx, QueryFilter{AffectedRecord: "r9"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(byRecord) != 1 || byRecord[0].Action != ActionBulkConfirmed {
		t.Errorf("record filter: got %+v", byRecord)
	}

	limited, err := store.Query(ctx, QueryFilter{Limit: 2})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("limit: got %d entries", len(limited))
	}
}

func TestDeleteBefore(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	store.Log(ctx, Entry{ActorType: ActorSystem, ActorID: "system", Action: ActionBulkExpired})

	deleted, err := store.DeleteBefore(ctx, time.Now().UTC().Add(time.Hour))
	if err != nil {
		t.Fatalf("DeleteBefore: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}
}

func TestRoutes(t *testing.T) {
	store := setupStore(t)
	store.Log(context.Background(), Entry{
		ID: "e1", ActorType: ActorUser, ActorID: "alice", Action: ActionRequestHandled,
	})

	router := chi.NewRouter()
	RegisterRoutes(router, store)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/audit/?actor=alice", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("query status = %d", rec.Code)
	}
	var entries []Entry
	if err := json.NewDecoder(rec.Body).Decode(&entries); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected 1 entry, got %d", len(entries))
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/audit/e1", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("get status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/audit/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing entry status = %d", rec.Code)
	}
}
