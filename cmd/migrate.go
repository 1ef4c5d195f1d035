package cmd

import (
	"context"
	"fmt"

	"github.com/jmehdipour/kuritterweight/internal/config"
	"github.com/jmehdipour/kuritterweight/internal/db"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the weight store schema (and ClickHouse history when configured)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		ctx := context.Background()

		sqlDB, err := db.NewSQLConnection(cfg.Store.Driver, cfg.Store.DSN, db.SQLOpts{
			PingTimeout: cfg.Store.PingTimeout,
		})
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer sqlDB.Close()

		if err := db.Migrate(ctx, sqlDB, cfg.Store.Driver); err != nil {
			return err
		}
		fmt.Printf(">> %s migration complete\n", cfg.Store.Driver)

		if cfg.ClickHouse.DSN == "" {
			return nil
		}

		chDB, err := db.NewClickHouseConnection(cfg.ClickHouse.DSN, db.SQLOpts{
			PingTimeout: cfg.ClickHouse.PingTimeout,
		})
		if err != nil {
			return fmt.Errorf("clickhouse connect: %w", err)
		}
		defer chDB.Close()

		if err := db.Migrate(ctx, chDB, "clickhouse"); err != nil {
			return err
		}
		fmt.Println(">> clickhouse migration complete")
		return nil
	},
}
