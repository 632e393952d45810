package main

import (
	"fmt"

	"github.com/IntelliTect/Coalesce-sub010/internal/config"
	"github.com/IntelliTect/Coalesce-sub010/internal/db"
	"github.com/IntelliTect/Coalesce-sub010/internal/logger"

	"github.com/spf13/cobra"
)

func migrateCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or revert Postgres schema migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := db.MigrateUp(cfg.Database.PostgresDSN, cfg.MigrationsDir); err != nil {
				return err
			}
			logger.Info("migrations_applied", map[string]any{"dir": cfg.MigrationsDir})
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	})

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Revert migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if steps < 1 {
				return fmt.Errorf("--steps must be at least 1")
			}
			if err := db.MigrateDown(cfg.Database.PostgresDSN, cfg.MigrationsDir, steps); err != nil {
				return err
			}
			logger.Info("migrations_reverted", map[string]any{"steps": steps})
			fmt.Fprintf(cmd.OutOrStdout(), "reverted %d migration(s)\n", steps)
			return nil
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to revert")
	cmd.AddCommand(down)
	return cmd
}
