package vectordb

import (
	"context"
	"testing"
)

// staticEmbedder returns tiny deterministic vectors so tests run
// without a network.
type staticEmbedder struct{}

func (staticEmbedder) Name() string    { return "static" }
func (staticEmbedder) Dimensions() int { return 4 }

func (staticEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := [4]float32{1, 0, 0, 0}
		for j, c := range []byte(t) {
			v[j%4] += float32(c) / 255.0
		}
		out[i] = v[:]
	}
	return out, nil
}

func setupStore(t *testing.T) *ChromemStore {
	t.Helper()
	store, err := NewChromemStore(staticEmbedder{})
	if err != nil {
		t.Fatalf("NewChromemStore: %v", err)
	}
	return store
}

func TestAddAndSearch(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	docs := []Document{
		{ID: "r1", Content: "buy groceries for the week", Metadata: DocumentMetadata{UserID: "alice", Source: "native", Type: "task"}},
		{ID: "r2", Content: "quarterly planning meeting", Metadata: DocumentMetadata{UserID: "bob", Source: "calendar", Type: "event"}},
	}
	if err := store.AddDocuments(ctx, docs); err != nil {
		t.Fatalf("AddDocuments: %v", err)
	}
	if store.Count() != 2 {
		t.Fatalf("expected 2 documents, got %d", store.Count())
	}

	results, err := store.Search(ctx, "groceries", 5, &SearchFilter{UserID: "alice"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result for alice, got %d", len(results))
	}
	if results[0].ID != "r1" {
		t.Errorf("expected r1, got %s", results[0].ID)
	}
}

func TestSearchEmptyStore(t *testing.T) {
	store := setupStore(t)

	results, err := store.Search(context.Background(), "anything", 5, &SearchFilter{UserID: "alice"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestDelete(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	store.AddDocuments(ctx, []Document{
		{ID: "r1", Content: "some task", Metadata: DocumentMetadata{UserID: "alice", Source: "native", Type: "task"}},
	})

	if err := store.Delete(ctx, "r1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if store.Count() != 0 {
		t.Errorf("expected empty store after delete, got %d", store.Count())
	}
}
