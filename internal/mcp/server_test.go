package mcp

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/taskwise-ai/taskwise/internal/assistant"
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

// downOracle always fails, forcing rule-based handling.
type downOracle struct{}

func (downOracle) Generate(ctx context.Context, req oracle.Request) (*oracle.Response, error) {
	return nil, errors.New("oracle unavailable")
}

func (downOracle) Name() string { return "down" }

func setupServer(t *testing.T) (*Server, records.Store) {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	store := records.NewSQLStore(database, nil)
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
	})
	return NewServer(a, store, "alice"), store
}

func TestToolDefinitions(t *testing.T) {
	tests := []struct {
		name     string
		tool     mcp.Tool
		wantName string
	}{
		{"ask_assistant", askAssistantTool, "ask_assistant"},
		{"search_records", searchRecordsTool, "search_records"},
		{"confirm_operation", confirmOperationTool, "confirm_operation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.tool.Name != tt.wantName {
				t.Errorf("tool name = %q, want %q", tt.tool.Name, tt.wantName)
			}
			if tt.tool.Description == "" {
				t.Error("tool description should not be empty")
			}
		})
	}
}

func TestNewServer(t *testing.T) {
	srv, _ := setupServer(t)
	if srv == nil {
		t.Fatal("NewServer returned nil")
	}
	if srv.mcp == nil {
		t.Fatal("MCP server not initialized")
	}
	if srv.userID != "alice" {
		t.Errorf("userID = %q", srv.userID)
	}
}

func TestHandleSearchRecords(t *testing.T) {
	srv, store := setupServer(t)
	ctx := context.Background()
	store.Create(ctx, records.Record{UserID: "alice", Title: "Plan sprint retro", Source: "linear"})
	store.Create(ctx, records.Record{UserID: "bob", Title: "Bob's sprint notes"})

	t.Run("basic search", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{"query": "sprint"}

		result, err := srv.handleSearchRecords(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.IsError {
			t.Fatalf("unexpected tool error: %v", result.Content)
		}
	})

	t.Run("missing query", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{}

		result, err := srv.handleSearchRecords(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.IsError {
			t.Error("expected error for missing query")
		}
	})

	t.Run("source filter excludes others", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{"query": "sprint", "source": "calendar"}

		result, err := srv.handleSearchRecords(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.IsError {
			t.Fatalf("unexpected tool error: %v", result.Content)
		}
	})
}

func TestHandleAskAssistant(t *testing.T) {
	srv, store := setupServer(t)
	ctx := context.Background()
	store.Create(ctx, records.Record{UserID: "alice", Title: "Quarterly report"})

	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]any{"query": "what do I have on the quarterly report?"}

	result, err := srv.handleAskAssistant(ctx, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %v", result.Content)
	}
}

func TestHandleConfirmOperation(t *testing.T) {
	srv, _ := setupServer(t)
	ctx := context.Background()

	t.Run("missing decision", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{"operation_id": "op-1"}

		result, err := srv.handleConfirmOperation(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.IsError {
			t.Error("expected error for missing decision")
		}
	})

	t.Run("unknown operation", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{"operation_id": "nope", "decision": "confirm"}

		result, err := srv.handleConfirmOperation(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		// The assistant reports the miss in prose rather than a tool error.
		if result.IsError {
			t.Fatalf("unexpected tool error: %v", result.Content)
		}
		text := toolText(result)
		if !strings.Contains(text, "pending operation") {
			t.Errorf("text = %q", text)
		}
	})
}

func toolText(result *mcp.CallToolResult) string {
	var sb strings.Builder
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			sb.WriteString(tc.Text)
		}
	}
	return sb.String()
}
