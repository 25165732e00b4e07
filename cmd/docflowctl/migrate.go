package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/garyjia/docflow/pkg/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	Long: `Apply pending schema migrations to the configured SQLite database.

Migrations are read from database.migrations_dir when it is set and from the
embedded set otherwise.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := database.New(database.Config{
			Path:            cfg.Database.Path,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			BusyTimeout:     cfg.Database.BusyTimeout,
		}, logger)
		if err != nil {
			return err
		}
		defer db.Close()

		migrator := database.NewMigrator(db, logger)
		var applied int
		if cfg.Database.MigrationsDir != "" {
			applied, err = migrator.RunMigrations(cfg.Database.MigrationsDir)
		} else {
			applied, err = migrator.Migrate()
		}
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s) to %s\n", applied, cfg.Database.Path)
		return nil
	},
}
