package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/obispado/citas-backend/internal/app"
	"github.com/obispado/citas-backend/internal/config"
	httpapi "github.com/obispado/citas-backend/internal/http"
	"github.com/obispado/citas-backend/internal/jobs"
	"github.com/obispado/citas-backend/internal/observability"
)

const (
	shutdownTimeout = 15 * time.Second
	sweepSpec       = "@every 10m"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, opts.cfg)
		},
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	gin.SetMode(cfg.GinMode)

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	a, cleanup, err := openApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	sched, err := newScheduler(cfg, a)
	if err != nil {
		return err
	}
	if sched != nil {
		sched.Start()
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			sched.Stop(sctx)
		}()
	}

	r := gin.New()
	httpapi.RegisterRoutes(r, a)

	srv := &http.Server{
		Addr:              net.JoinHostPort("", cfg.Port),
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("version", version).
			Str("db", cfg.DB.Driver).
			Str("api_base", cfg.APIBasePath).
			Bool("swagger", cfg.SwaggerEnabled).
			Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return err
	}
	log.Info().Msg("http server stopped")
	return nil
}

// newScheduler returns nil when background jobs are disabled.
func newScheduler(cfg config.Config, a *app.App) (*jobs.Scheduler, error) {
	if !cfg.Jobs.Enabled {
		return nil, nil
	}
	return jobs.New(jobs.Options{
		PurgeSpec:  cfg.Jobs.PurgeCron,
		DigestSpec: cfg.Jobs.DigestCron,
		SweepSpec:  sweepSpec,
		Location:   a.Admin.Location,
	}, a.Admin, a.Digest, a.Auth)
}
