package main

import (
	"log/slog"

	"github.com/reshetovitsme/insta-autoreply/internal/di"
	"github.com/reshetovitsme/insta-autoreply/internal/shared/config"
	"github.com/reshetovitsme/insta-autoreply/internal/shared/logging"
	"github.com/samber/do/v2"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		injector, err := di.Setup()
		if err != nil {
			return err
		}
		defer func() {
			if err := di.Shutdown(injector); err != nil {
				slog.Error("Error during shutdown", "error", err)
			}
		}()

		cfg, err := do.Invoke[*config.Config](injector)
		if err != nil {
			return err
		}
		_, closer := logging.Setup(cfg)
		defer closer.Close()

		return migrate(injector)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
