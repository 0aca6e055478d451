package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pathakanu/remindbot/internal/config"
	"github.com/pathakanu/remindbot/internal/logging"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the reminders table",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			logger, flush := logging.New("remindbot", cfg.LogLevel)
			defer flush()

			// Gateway settings aren't needed to migrate.
			if _, err := openDatabase(cfg, logger); err != nil {
				logger.Errorw("migration failed", "err", err)
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}
