package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/moneywise-app/moneywise/internal/config"
	"github.com/moneywise-app/moneywise/internal/logger"
	"github.com/moneywise-app/moneywise/internal/seed"
	"github.com/moneywise-app/moneywise/internal/storage"
)

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load demo users, accounts and transaction history",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			log, err := logger.New(cfg.Log.Level)
			if err != nil {
				return err
			}
			defer log.Sync()

			store, err := storage.Open(cfg.DB.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Migrate(cmd.Context()); err != nil {
				return err
			}
			if err := seed.Run(cmd.Context(), store, log); err != nil {
				return err
			}
			log.Info("seed complete", zap.String("db", cfg.DB.Path))
			return nil
		},
	}
}
