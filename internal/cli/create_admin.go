package cli

import (
	"fmt"
	"time"

	"monthly-quiz-service/internal/auth"
	"monthly-quiz-service/internal/config"
	"monthly-quiz-service/internal/infra/memory"
	"monthly-quiz-service/internal/infra/postgres"
	"github.com/spf13/cobra"
)

// NewCreateAdminCmd bootstraps the single dashboard admin account. It refuses
// to run once an admin row exists.
func NewCreateAdminCmd(configPath *string) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create the dashboard admin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("postgres url not configured")
			}
			if err := runMigrationsWithConfig(cmd.Context(), cfg); err != nil {
				return err
			}

			db := openBunDB(cfg.Postgres.URL)
			defer db.Close()
			store := postgres.NewStore(db)

			// Sessions are irrelevant here; signup never opens one.
			svc := auth.NewService(store, memory.NewSessionStore(), cfg.Auth.TokenSecret, time.Hour)
			admin, err := svc.Signup(cmd.Context(), email, password, password)
			if err != nil {
				return err
			}
			fmt.Printf("admin %s created (%s)\n", admin.Email, admin.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "admin email")
	cmd.Flags().StringVar(&password, "password", "", "admin password (min 8 characters)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
