package main

import (
	"errors"
	"strings"

	pg "family-locator/internal/adapters/storage/postgres"
	"family-locator/internal/config"

	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			if strings.TrimSpace(cfg.DB.DSN) == "" {
				return errors.New("db.dsn is required")
			}

			lg := newLogger(cfg)
			defer func() { _ = lg.Sync() }()

			db, err := pg.Open(cfg.DB.DSN, pg.PoolOptions{MaxOpenConns: 1, MaxIdleConns: 1})
			if err != nil {
				return err
			}
			defer db.Close()

			if err := pg.Migrate(db, lg); err != nil {
				return err
			}
			lg.Info("migrations applied", nil)
			return nil
		},
	}
}
