package main

import (
	"fmt"
	"os"

	"family-locator/internal/config"

	"github.com/spf13/cobra"
)

// @title family-locator API
// @version 1.0
// @description Geocercas familiares y evaluación de ubicaciones.
// @BasePath /
func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:               "family-locator [command]",
		Short:             "Family location tracking API",
		Example:           "family-locator serve --config config.yaml",
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
		SilenceUsage:      true,
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}
	config.AddFlags(cmd.PersistentFlags())
	cmd.AddCommand(newServeCmd(), newMigrateCmd(), newTokenCmd())
	return cmd
}
