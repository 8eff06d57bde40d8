package mcp

import "github.com/mark3labs/mcp-go/mcp"

// askAssistantTool defines the ask_assistant MCP tool.
var askAssistantTool = mcp.NewTool("ask_assistant",
	mcp.WithDescription("Ask the taskwise assistant anything: search, create, update, or schedule tasks, events, and notes in natural language. Bulk changes return a pending operation that must be confirmed with confirm_operation."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Natural language request"),
	),
)

// searchRecordsTool defines the search_records MCP tool.
var searchRecordsTool = mcp.NewTool("search_records",
	mcp.WithDescription("Search the user's tasks, events, and notes directly, without going through intent analysis."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Search text matched against titles and descriptions"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of results to return (default 10)"),
	),
	mcp.WithString("source",
		mcp.Description("Restrict results to one integration"),
		mcp.Enum("native", "linear", "github", "calendar", "gmail"),
	),
)

// confirmOperationTool defines the confirm_operation MCP tool.
var confirmOperationTool = mcp.NewTool("confirm_operation",
	mcp.WithDescription("Confirm or cancel a pending bulk operation returned by ask_assistant. Pending operations expire after a few minutes."),
	mcp.WithString("operation_id",
		mcp.Required(),
		mcp.Description("ID of the pending operation"),
	),
	mcp.WithString("decision",
		mcp.Required(),
		mcp.Description("Whether to execute or discard the operation"),
		mcp.Enum("confirm", "cancel"),
	),
)
