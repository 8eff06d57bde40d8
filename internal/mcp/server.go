package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/taskwise-ai/taskwise/internal/assistant"
	"github.com/taskwise-ai/taskwise/internal/records"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Server wraps an MCP server that exposes the assistant to MCP
// clients. The userID identifies whose records the session operates
// on; MCP runs one session per user.
type Server struct {
	assistant *assistant.Assistant
	store     records.Store
	userID    string
	mcp       *server.MCPServer
}

// NewServer creates a new MCP server with the given dependencies.
func NewServer(a *assistant.Assistant, store records.Store, userID string) *Server {
	s := &Server{
		assistant: a,
		store:     store,
		userID:    userID,
	}

	s.mcp = server.NewMCPServer(
		"taskwise",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(askAssistantTool, s.handleAskAssistant)
	s.mcp.AddTool(searchRecordsTool, s.handleSearchRecords)
	s.mcp.AddTool(confirmOperationTool, s.handleConfirmOperation)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
