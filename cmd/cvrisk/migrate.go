package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"cvrisk/db"
)

func newMigrateCmd(root *rootOptions) *cobra.Command {
	var target int
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run audit database schema migrations.",
		Long: `Run audit database schema migrations.

By default, migrates to the latest version. Use --version for a specific
version; 0 rolls back every migration.`,
		Example: `  cvrisk migrate
  cvrisk migrate --version 1
  cvrisk migrate --version 0`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			if cfg.Database.Path == "" {
				return errors.New("database.path is empty; the audit log is disabled")
			}
			m, err := db.Migrate(cfg.Database.Path, target)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !m.Changed {
				fmt.Fprintf(out, "No migration needed. Database is at version %d.\n", m.To)
				return nil
			}
			fmt.Fprintf(out, "Migrated %s from version %d to version %d.\n", cfg.Database.Path, m.From, m.To)
			return nil
		},
	}
	cmd.Flags().IntVar(&target, "version", -1, "Target migration version (-1 means latest, 0 rolls back everything)")
	return cmd
}
