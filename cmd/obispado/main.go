// Command obispado runs the appointment booking API and its maintenance
// tasks.
//
// @title                      Obispado Citas API
// @version                    1.0
// @description                Appointment booking for the bishop's office.
// @BasePath                   /api/v1
// @securityDefinitions.apikey BearerAuth
// @in                         header
// @name                       Authorization
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	_ "github.com/obispado/citas-backend/docs"
	"github.com/obispado/citas-backend/internal/app"
	"github.com/obispado/citas-backend/internal/config"
	"github.com/obispado/citas-backend/internal/repo"
	"github.com/obispado/citas-backend/internal/sysutil"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type rootOptions struct {
	envFile string
	cfg     config.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "obispado",
		Short:         "Obispado appointment booking backend",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := godotenv.Load(opts.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("load %s: %w", opts.envFile, err)
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			opts.cfg = cfg
			log.Logger = sysutil.NewLogger(cmd.ErrOrStderr(), cfg.LogPretty, cfg.OTEL.ServiceName)
			sysutil.SetLogLevel(cfg.LogLevel)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	root.SetErr(os.Stderr)

	root.AddCommand(
		newServeCmd(opts),
		newMigrateCmd(opts),
		newAdminCmd(opts),
		newPurgeCmd(opts),
		newDigestCmd(opts),
	)
	return root
}

// openApp opens and migrates the configured database and wires the
// services. The returned cleanup closes both.
func openApp(ctx context.Context, cfg config.Config) (*app.App, func(), error) {
	db, err := repo.Open(cfg.DB.Driver, cfg.DB.DSN())
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	closeDB := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if err := repo.AutoMigrate(db); err != nil {
		closeDB()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	a, err := app.New(ctx, cfg, db)
	if err != nil {
		closeDB()
		return nil, nil, err
	}
	return a, func() {
		if err := a.Close(); err != nil {
			log.Warn().Err(err).Msg("close session store")
		}
		closeDB()
	}, nil
}
