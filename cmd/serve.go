package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/taskwise-ai/taskwise/internal/assistant"
	"github.com/taskwise-ai/taskwise/internal/audit"
	"github.com/taskwise-ai/taskwise/internal/dashboard"
	"github.com/taskwise-ai/taskwise/internal/db"
	"github.com/taskwise-ai/taskwise/internal/logging"
	"github.com/taskwise-ai/taskwise/internal/server"
)

var (
	servePort     int
	serveAllowAll bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the taskwise HTTP server",
	Long: `Starts the HTTP server exposing the assistant API, the audit trail,
the web dashboard, and integration health endpoints.`,
	Run: func(cmd *cobra.Command, args []string) {
		exitOnError(runServe())
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "port to listen on (overrides config)")
	serveCmd.Flags().BoolVar(&serveAllowAll, "allow-all-origins", false, "allow all CORS origins (dev mode)")
	rootCmd.AddCommand(serveCmd)
}

func runServe() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort != 0 {
		cfg.Port = servePort
	}

	logger := logging.Must(verbose)
	defer logger.Sync()

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	database, err := db.Open(filepath.Join(cfg.DataDir, "taskwise.db"))
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, store, health, trail, err := buildAssistant(ctx, cfg, database, logger)
	if err != nil {
		return err
	}

	srv := server.New(server.Config{
		Port:     cfg.Port,
		DataDir:  cfg.DataDir,
		AllowAll: serveAllowAll,
	}, database, health, logger)

	assistant.RegisterRoutes(srv.Router(), a)
	audit.RegisterRoutes(srv.Router(), trail)
	dashboard.New(a, store, trail, logger).RegisterRoutes(srv.Router())

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	logger.Info("taskwise serving",
		zap.Int("port", cfg.Port),
		zap.String("provider", string(cfg.Provider)),
		zap.String("model", cfg.Model))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
