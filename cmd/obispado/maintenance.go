package main

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/obispado/citas-backend/internal/repo"
	"github.com/obispado/citas-backend/internal/services"
	"github.com/obispado/citas-backend/internal/sysutil"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := repo.Open(opts.cfg.DB.Driver, opts.cfg.DB.DSN())
			if err != nil {
				return err
			}
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}
			if err := repo.AutoMigrate(db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			log.Info().Str("driver", opts.cfg.DB.Driver).Msg("schema up to date")
			return nil
		},
	}
}

func newPurgeCmd(opts *rootOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete appointments dated before today",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, cleanup, err := openApp(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			if !yes {
				fmt.Fprintf(cmd.ErrOrStderr(), "Delete all appointments before %s? [s/N] ", a.Admin.Today())
				answer, err := readLine(cmd.InOrStdin())
				if err != nil {
					return err
				}
				if !sysutil.IsTruthy(answer) {
					fmt.Fprintln(cmd.OutOrStdout(), "aborted")
					return nil
				}
			}

			n, err := a.Admin.PurgeExpired(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d appointment(s)\n", n)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func newDigestCmd(opts *rootOptions) *cobra.Command {
	var to string
	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Email the upcoming appointments summary",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, cleanup, err := openApp(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			if to != "" {
				a.Digest.To = to
			}
			res, err := a.Digest.Send(cmd.Context())
			if errors.Is(err, services.ErrNotConfigured) {
				return errors.New("no digest recipient: set DIGEST_EMAIL or pass --to")
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sent %d appointment(s) from %s to %s to %s\n",
				res.Appointments, res.From, res.Until, res.To)
			return nil
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "recipient (default: $DIGEST_EMAIL)")
	return cmd
}
