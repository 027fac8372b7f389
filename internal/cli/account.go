package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"library-backend/internal/platform/auth"
	"library-backend/internal/platform/clock"
	"library-backend/internal/platform/db"
)

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Manage staff accounts",
}

var accountFlags struct {
	id       string
	password string
	role     string
}

var accountCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a staff account (use this to bootstrap the first admin)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(accountFlags.password) < 8 {
			return fmt.Errorf("password must be at least 8 characters")
		}
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

		svc := auth.NewService(auth.NewStore(conn), []byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL, clock.Real{Loc: cfg.Location()}, log.Named("auth"))
		if err := svc.Register(cmd.Context(), accountFlags.id, accountFlags.password, accountFlags.role); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "account %s created (role=%s)\n", accountFlags.id, accountFlags.role)
		return nil
	},
}

func init() {
	f := accountCreateCmd.Flags()
	f.StringVar(&accountFlags.id, "id", "", "login id")
	f.StringVar(&accountFlags.password, "password", "", "password (min 8 chars)")
	f.StringVar(&accountFlags.role, "role", auth.RoleStaff, "admin or staff")
	_ = accountCreateCmd.MarkFlagRequired("id")
	_ = accountCreateCmd.MarkFlagRequired("password")
	accountCmd.AddCommand(accountCreateCmd)
}
