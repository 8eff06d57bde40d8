package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "taskwise",
	Short: "AI-powered productivity assistant for tasks, events, and notes",
	Long: `Taskwise is a natural-language productivity assistant. It understands
what you want to do with your tasks, events, and notes, plans multi-step
requests, and keeps destructive bulk changes behind an explicit
confirmation. Records can come from Linear, GitHub, Google Calendar, and
Gmail alongside natively created ones.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".taskwise.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
