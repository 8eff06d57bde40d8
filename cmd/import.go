package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/taskwise-ai/taskwise/internal/db"
	"github.com/taskwise-ai/taskwise/internal/logging"
	"github.com/taskwise-ai/taskwise/internal/records"
	"github.com/taskwise-ai/taskwise/internal/sources"
)

var (
	importUser   string
	importSource string
	importDryRun bool
)

var importCmd = &cobra.Command{
	Use:   "import [glob]",
	Short: "Import records from JSON export files",
	Long: `Imports records from JSON files matching a glob pattern. Each file
holds a JSON array of records, the shape produced by source exporters
(Linear, GitHub, Google Calendar, Gmail) and by taskwise itself.

Examples:
  taskwise import "exports/**/*.json" --user alice
  taskwise import "linear-dump.json" --user alice --source linear`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		exitOnError(runImport(args[0]))
	},
}

func init() {
	importCmd.Flags().StringVar(&importUser, "user", "", "user ID to import records for (required)")
	importCmd.Flags().StringVar(&importSource, "source", "", "override the source of all imported records")
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "parse and validate without writing anything")
	rootCmd.AddCommand(importCmd)
}

func runImport(pattern string) error {
	if importUser == "" {
		return fmt.Errorf("--user is required")
	}
	if importSource != "" && !sources.Known(importSource) {
		return fmt.Errorf("unknown source %q", importSource)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := logging.Must(verbose)
	defer logger.Sync()

	paths, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return fmt.Errorf("invalid glob %q: %w", pattern, err)
	}
	if len(paths) == 0 {
		return fmt.Errorf("no files match %q", pattern)
	}

	var batch []records.Record
	for _, path := range paths {
		recs, err := readExport(path)
		if err != nil {
			return err
		}
		batch = append(batch, recs...)
	}
	if len(batch) == 0 {
		return fmt.Errorf("matched %d file(s) but found no records", len(paths))
	}

	if importDryRun {
		fmt.Printf("Would import %d record(s) from %d file(s).\n", len(batch), len(paths))
		return nil
	}

	database, err := db.Open(filepath.Join(cfg.DataDir, "taskwise.db"))
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	store := records.NewSQLStore(database, nil)
	ctx := context.Background()

	bar := progressbar.Default(int64(len(batch)), "importing")
	imported, failed := 0, 0
	for _, r := range batch {
		r.UserID = importUser
		if importSource != "" {
			r.Source = importSource
		}
		if _, err := store.Create(ctx, r); err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "skipping %q: %v\n", r.Title, err)
		} else {
			imported++
		}
		bar.Add(1)
	}

	fmt.Printf("\nImported %d record(s) from %d file(s)", imported, len(paths))
	if failed > 0 {
		fmt.Printf(", %d failed", failed)
	}
	fmt.Println(".")
	return nil
}

func readExport(path string) ([]records.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var recs []records.Record
	if err := json.Unmarshal(data, &recs); err != nil {
		// Some exporters emit a single object rather than an array.
		var one records.Record
		if err2 := json.Unmarshal(data, &one); err2 != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		recs = []records.Record{one}
	}
	return recs, nil
}
