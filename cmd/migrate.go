package cmd

import (
	"fmt"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/spf13/cobra"

	"github.com/yi-nology/photo_bridge/pkg/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the catalog schema",
	Long: `Apply the catalog schema (photos, tags, carousel slots) to the configured
database and exit. serve runs the same migration on startup.

Examples:
  photo_bridge migrate
  photo_bridge migrate --config /etc/photo_bridge/config.yaml`,
	RunE: runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer database.Close(db)

	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	hlog.Infof("schema migrated (driver=%s)", cfg.Database.Driver)
	return nil
}
