package main

import (
	"errors"
	"fmt"

	"github.com/common-repository/paymentsense-gateway/internal/adapters/database"
	"github.com/common-repository/paymentsense-gateway/internal/config"
	"github.com/common-repository/paymentsense-gateway/pkg/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func migrateCmd() *cobra.Command {
	var list bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded database migrations",
		Long: `Apply the embedded schema migrations to database.url.

serve runs the same migrations on start unless database.migrate is false.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if list {
				names, err := database.MigrationNames()
				if err != nil {
					return err
				}
				for _, name := range names {
					fmt.Fprintln(cmd.OutOrStdout(), name)
				}
				return nil
			}

			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			if cfg.Database.URL == "" {
				return errors.New("database.url is not set")
			}

			logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Development)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			dbCfg := database.DefaultPostgreSQLConfig(cfg.Database.URL)
			dbCfg.MaxConns = 1
			dbCfg.MinConns = 0

			db, err := database.NewPostgreSQLAdapter(cmd.Context(), dbCfg, logger)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer db.Close()

			if err := db.Migrate(cmd.Context()); err != nil {
				return err
			}
			names, _ := database.MigrationNames()
			logger.Info("Database migrated", zap.Strings("migrations", names))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&list, "list", "l", false, "list the embedded migrations without applying them")
	return cmd
}
