package admin

import (
	"fmt"
	"os"

	"github.com/cloo-solutions/buscador/internal/cli"
	"github.com/cloo-solutions/buscador/internal/config"
	"github.com/cloo-solutions/buscador/internal/database"
	"github.com/spf13/cobra"
)

// MigrateCmd applies the search log migrations without starting the server.
func MigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Long:  "Apply pending search log migrations to BUSCADOR_DATABASE_URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadService()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			cli.NewLogger(os.Stderr, cfg.Debug)
			if !cfg.HasDatabase() {
				return fmt.Errorf("BUSCADOR_DATABASE_URL is not set")
			}
			return database.Migrate(cfg.DatabaseURL)
		},
	}
}
