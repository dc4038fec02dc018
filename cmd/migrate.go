package cmd

import (
	"dsa_hub_backend/internal/catalog"
	"dsa_hub_backend/pkg/database"
	"dsa_hub_backend/pkg/logger"
	"fmt"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "只执行数据库迁移并同步主题目录，完成后退出",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger.InitLogger(cfg)
		defer logger.Log.Sync()

		cat, err := catalog.Load()
		if err != nil {
			return err
		}
		db, err := database.InitDB(&cfg.Database)
		if err != nil {
			return fmt.Errorf("initialize database: %w", err)
		}
		if err := database.Migrate(db, cat); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "migrated, %d topics synced\n", len(cat.Topics()))
		return nil
	},
}
