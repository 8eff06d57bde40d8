package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/taskwise-ai/taskwise/internal/assistant"
	"github.com/taskwise-ai/taskwise/internal/records"
)

// handleAskAssistant routes a natural-language request through the
// assistant front door.
func (s *Server) handleAskAssistant(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}

	resp := s.assistant.Handle(ctx, s.userID, query)
	return mcp.NewToolResultText(formatResponse(resp)), nil
}

// handleSearchRecords searches the record store directly.
func (s *Server) handleSearchRecords(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}

	limit := request.GetInt("limit", 10)
	if limit <= 0 {
		limit = 10
	}

	found, err := s.store.Search(ctx, s.userID, query, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	if source := request.GetString("source", ""); source != "" {
		var filtered []records.Record
		for _, r := range found {
			if r.Source == source {
				filtered = append(filtered, r)
			}
		}
		found = filtered
	}

	if len(found) == 0 {
		return mcp.NewToolResultText("No matching records."), nil
	}
	return mcp.NewToolResultText(formatRecords(found)), nil
}

// handleConfirmOperation executes or discards a pending bulk operation.
func (s *Server) handleConfirmOperation(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	opID, err := request.RequireString("operation_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: operation_id"), nil
	}
	decision, err := request.RequireString("decision")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: decision"), nil
	}

	var resp *assistant.Response
	switch decision {
	case "confirm":
		resp = s.assistant.Confirm(ctx, s.userID, opID)
	case "cancel":
		resp = s.assistant.Cancel(ctx, s.userID, opID)
	default:
		return mcp.NewToolResultError("decision must be \"confirm\" or \"cancel\""), nil
	}
	return mcp.NewToolResultText(formatResponse(resp)), nil
}

// formatResponse converts an assistant response into text for AI agent
// consumption, preserving the pending operation ID when one exists.
func formatResponse(resp *assistant.Response) string {
	var sb strings.Builder
	sb.WriteString(resp.Message)

	if resp.Kind == assistant.KindNeedsConfirmation {
		fmt.Fprintf(&sb, "\n\nPending operation: %s (affects %d record(s)).", resp.PendingOperationID, resp.TotalAffected)
		sb.WriteString(" Use confirm_operation to execute or cancel it.")
		if len(resp.Preview) > 0 {
			sb.WriteString("\n\nPreview:\n")
			sb.WriteString(formatRecords(resp.Preview))
		}
	}
	return sb.String()
}

func formatRecords(rs []records.Record) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d record(s):\n", len(rs))
	for i, r := range rs {
		fmt.Fprintf(&sb, "\n--- Record %d ---\n", i+1)
		fmt.Fprintf(&sb, "ID: %s\nTitle: %s\nType: %s\nStatus: %s\nPriority: %s\nSource: %s\n",
			r.ID, r.Title, r.Type, r.Status, r.Priority, r.Source)
		if r.Due != nil {
			fmt.Fprintf(&sb, "Due: %s\n", r.Due.Format("2006-01-02 15:04"))
		}
		if r.Description != "" {
			sb.WriteString(r.Description)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
