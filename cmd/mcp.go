package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/taskwise-ai/taskwise/internal/db"
	"github.com/taskwise-ai/taskwise/internal/logging"
	mcpserver "github.com/taskwise-ai/taskwise/internal/mcp"
)

var mcpUser string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server on stdio",
	Long: `Starts a Model Context Protocol server over stdin/stdout, exposing the
assistant to MCP clients such as coding agents and chat frontends. All
diagnostics go to stderr; stdout carries only the protocol.`,
	Run: func(cmd *cobra.Command, args []string) {
		exitOnError(runMCP())
	},
}

func init() {
	mcpCmd.Flags().StringVar(&mcpUser, "user", "", "user ID the MCP session acts as (required)")
	rootCmd.AddCommand(mcpCmd)
}

func runMCP() error {
	if mcpUser == "" {
		return fmt.Errorf("--user is required")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// stdout belongs to the MCP protocol; zap defaults to stderr.
	logger := logging.Must(verbose)
	defer logger.Sync()

	database, err := db.Open(filepath.Join(cfg.DataDir, "taskwise.db"))
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	a, store, _, _, err := buildAssistant(context.Background(), cfg, database, logger)
	if err != nil {
		return err
	}

	mcpserver.Version = Version
	srv := mcpserver.NewServer(a, store, mcpUser)

	logger.Info("mcp server ready", zap.String("user", mcpUser))
	return srv.Serve()
}
