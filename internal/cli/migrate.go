package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"library-backend/internal/platform/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply or inspect schema migrations",
}

func init() {
	migrateCmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE:  withMigrator(func(m *db.Migrator, cmd *cobra.Command) error { return m.Up() }),
	})
	migrateCmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		RunE:  withMigrator(func(m *db.Migrator, cmd *cobra.Command) error { return m.Steps(-1) }),
	})
	migrateCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		RunE: withMigrator(func(m *db.Migrator, cmd *cobra.Command) error {
			v, dirty, ok, err := m.Version()
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "no migrations applied")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty=%t)\n", v, dirty)
			return nil
		}),
	})
}

func withMigrator(fn func(m *db.Migrator, cmd *cobra.Command) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadEnv()
		if err != nil {
			return err
		}
		defer log.Sync()

		m, err := db.NewMigrator(cfg.DB, log)
		if err != nil {
			return err
		}
		defer m.Close()

		if err := fn(m, cmd); err != nil {
			return err
		}
		log.Info("migrate done", zap.String("cmd", cmd.Name()))
		return nil
	}
}
