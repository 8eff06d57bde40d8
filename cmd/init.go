package cmd

import (
	"github.com/spf13/cobra"

	"github.com/taskwise-ai/taskwise/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize taskwise configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to configure taskwise and generates a .taskwise.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard()
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
