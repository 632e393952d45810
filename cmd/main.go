package main

import (
	"fmt"
	"os"

	"github.com/IntelliTect/Coalesce-sub010/internal/config"
	"github.com/IntelliTect/Coalesce-sub010/internal/logger"

	"github.com/spf13/cobra"
)

func main() {
	var debug bool
	rootCmd := &cobra.Command{
		Use:   "coalesce",
		Short: "CRUD API runtime with transactional bulk save",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := logger.Init("."); err != nil {
				return fmt.Errorf("log init failed: %w", err)
			}
			logger.SetDebug(debug)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Sync()
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug logging")

	cfg := config.LoadConfig()
	serve := serveCmd(cfg)
	rootCmd.AddCommand(serve, migrateCmd(cfg), catalogCmd(cfg))
	// bare "coalesce" serves
	rootCmd.RunE = serve.RunE

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
