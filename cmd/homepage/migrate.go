package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/rickgao/homepage/internal/config"
	"github.com/rickgao/homepage/internal/database"
)

func newMigrateCmd(a *app) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the engagement tables and insert triggers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dryRun {
				for _, stmt := range database.Statements() {
					printf(cmd, "%s;\n\n", stmt)
				}
				return nil
			}
			if a.cfg.Store.Backend != config.BackendPostgres {
				return errors.New("migrate needs store.backend: postgres")
			}

			pool, err := database.Connect(cmd.Context(), a.cfg.Store.Postgres)
			if err != nil {
				return err
			}
			defer pool.Close()

			return database.Migrate(cmd.Context(), pool, a.logger)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the SQL instead of running it")
	return cmd
}
