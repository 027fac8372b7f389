package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"library-backend/internal/platform/clock"
	"library-backend/internal/platform/db"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep-overdue",
	Short: "Mark every ACTIVE loan past its due date as OVERDUE once and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadEnv()
		if err != nil {
			return err
		}
		defer log.Sync()

		conn, err := db.Connect(cfg.DB)
		if err != nil {
			return err
		}
		defer conn.Close()

		clk := clock.Real{Loc: cfg.Location()}
		n, err := newApp(cfg, log, conn, clk).borrowing.SweepOverdue(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d record(s) marked overdue as of %s\n", n, clock.FormatDate(clock.Today(clk)))
		return nil
	},
}
