package main

import (
	"github.com/spf13/cobra"
)

func newMigrateCommand(a *app) *cobra.Command {
	var target uint

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if cmd.Flags().Changed("version") {
				a.cfg.DatabaseMigrationVersion = target
			}

			db, err := a.connect(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := a.migrate(db); err != nil {
				a.logger.WithContext(ctx).WithError(err).Error("Migration failed")
				return err
			}
			a.logger.WithContext(ctx).Info("Migrations applied")
			return nil
		},
	}

	cmd.Flags().UintVar(&target, "version", 0, "target migration version, 0 for latest")
	return cmd
}
