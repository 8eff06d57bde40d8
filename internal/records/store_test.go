package records

import (
	"context"
	"testing"
	"time"

	"github.com/taskwise-ai/taskwise/internal/db"
)

func setupTestStore(t *testing.T) *SQLStore {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewSQLStore(database, nil)
}

func TestCreateDefaults(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	r, err := store.Create(ctx, Record{UserID: "alice", Title: "Buy groceries"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if r.ID == "" {
		t.Error("expected non-empty ID")
	}
	if r.Type != TypeTask || r.Status != StatusPending || r.Priority != PriorityMedium {
		t.Errorf("unexpected defaults: %+v", r)
	}
	if r.Source != "native" {
		t.Errorf("expected source native, got %q", r.Source)
	}
}

func TestGetScopedToUser(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	r, _ := store.Create(ctx, Record{UserID: "alice", Title: "Private task"})

	if _, err := store.Get(ctx, "alice", r.ID); err != nil {
		t.Errorf("owner read failed: %v", err)
	}
	if _, err := store.Get(ctx, "bob", r.ID); err != ErrNotFound {
		t.Errorf("expected ErrNotFound for foreign user, got %v", err)
	}
}

func TestFindFilters(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	store.Create(ctx, Record{UserID: "alice", Title: "Fix login bug", Source: "linear"})
	store.Create(ctx, Record{UserID: "alice", Title: "Team standup", Type: TypeEvent, Source: "calendar"})
	store.Create(ctx, Record{UserID: "alice", Title: "Write report"})
	store.Create(ctx, Record{UserID: "bob", Title: "Bob's task"})

	bySource, err := store.Find(ctx, Filter{UserID: "alice", Source: "linear"}, FindOptions{})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(bySource) != 1 || bySource[0].Title != "Fix login bug" {
		t.Errorf("source filter: got %+v", bySource)
	}

	byType, err := store.Find(ctx, Filter{UserID: "alice", Type: TypeEvent}, FindOptions{})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(byType) != 1 || byType[0].Title != "Team standup" {
		t.Errorf("type filter: got %+v", byType)
	}

	all, err := store.Find(ctx, Filter{UserID: "alice"}, FindOptions{})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 records for alice, got %d", len(all))
	}
}

func TestFindTitleContains(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	store.Create(ctx, Record{UserID: "alice", Title: "Review pull request"})
	store.Create(ctx, Record{UserID: "alice", Title: "Lunch", Description: "review restaurant options"})
	store.Create(ctx, Record{UserID: "alice", Title: "Unrelated"})

	found, err := store.Find(ctx, Filter{UserID: "alice", TitleContains: "review"}, FindOptions{})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(found) != 2 {
		t.Errorf("expected 2 matches on title/description, got %d", len(found))
	}
}

func TestFindDueWindow(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	soon := time.Now().UTC().Add(2 * time.Hour)
	later := time.Now().UTC().Add(72 * time.Hour)
	store.Create(ctx, Record{UserID: "alice", Title: "Due soon", Due: &soon})
	store.Create(ctx, Record{UserID: "alice", Title: "Due later", Due: &later})
	store.Create(ctx, Record{UserID: "alice", Title: "No due date"})

	cutoff := time.Now().UTC().Add(24 * time.Hour)
	found, err := store.Find(ctx, Filter{UserID: "alice", DueBefore: &cutoff}, FindOptions{SortBy: "due"})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(found) != 1 || found[0].Title != "Due soon" {
		t.Errorf("due window: got %+v", found)
	}
}

func TestUpdateByID(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	r, _ := store.Create(ctx, Record{UserID: "alice", Title: "Draft proposal"})

	done := StatusDone
	high := PriorityHigh
	updated, err := store.UpdateByID(ctx, "alice", r.ID, Patch{Status: &done, Priority: &high})
	if err != nil {
		t.Fatalf("UpdateByID: %v", err)
	}
	if updated.Status != StatusDone || updated.Priority != PriorityHigh {
		t.Errorf("patch not applied: %+v", updated)
	}
	if updated.Title != "Draft proposal" {
		t.Errorf("untouched field changed: %q", updated.Title)
	}
}

func TestUpdateByIDNotFound(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	done := StatusDone
	if _, err := store.UpdateByID(ctx, "alice", "nonexistent", Patch{Status: &done}); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	r, _ := store.Create(ctx, Record{UserID: "alice", Title: "Mine"})
	if _, err := store.UpdateByID(ctx, "bob", r.ID, Patch{Status: &done}); err != ErrNotFound {
		t.Errorf("expected ErrNotFound for foreign user, got %v", err)
	}
}

func TestSoftDelete(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	r, _ := store.Create(ctx, Record{UserID: "alice", Title: "Obsolete task"})

	deleted, err := store.SoftDelete(ctx, "alice", r.ID)
	if err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}
	if deleted.Status != StatusDeleted {
		t.Errorf("expected status deleted, got %q", deleted.Status)
	}

	// Deleted records drop out of Find by default.
	found, _ := store.Find(ctx, Filter{UserID: "alice"}, FindOptions{})
	if len(found) != 0 {
		t.Errorf("expected deleted record hidden, got %d", len(found))
	}

	withDeleted, _ := store.Find(ctx, Filter{UserID: "alice", IncludeDeleted: true}, FindOptions{})
	if len(withDeleted) != 1 {
		t.Errorf("expected deleted record visible with IncludeDeleted, got %d", len(withDeleted))
	}
}

func TestSearchKeyword(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	store.Create(ctx, Record{UserID: "alice", Title: "Plan sprint retro"})
	store.Create(ctx, Record{UserID: "alice", Title: "Order office supplies"})

	found, err := store.Search(ctx, "alice", "sprint", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(found) != 1 || found[0].Title != "Plan sprint retro" {
		t.Errorf("keyword search: got %+v", found)
	}
}

func TestMetadataRoundTrip(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	r, err := store.Create(ctx, Record{
		UserID:   "alice",
		Title:    "Linear issue",
		Source:   "linear",
		Metadata: map[string]string{"external_id": "LIN-42"},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := store.Get(ctx, "alice", r.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Metadata["external_id"] != "LIN-42" {
		t.Errorf("metadata lost: %+v", got.Metadata)
	}
}

func TestFindLimit(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		store.Create(ctx, Record{UserID: "alice", Title: "Task"})
	}

	found, err := store.Find(ctx, Filter{UserID: "alice"}, FindOptions{Limit: 3})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(found) != 3 {
		t.Errorf("expected limit 3, got %d", len(found))
	}
}
