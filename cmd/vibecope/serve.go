package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	httpapi "github.com/vibecope/vibecope/internal/http"
	"github.com/vibecope/vibecope/internal/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scoring HTTP API",
	Long: `Run the scoring HTTP API until interrupted.

The settings file is watched; changing the enabled locales, through the API or
by editing the file, recompiles the patterns without a restart.

Endpoints:
  GET  /health
  GET  /api/v1/locales
  POST /api/v1/score
  POST /api/v1/score/explain
  GET  /api/v1/settings
  PUT  /api/v1/settings/locales
  GET  /metrics`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.close()

	tel, err := telemetry.New(ctx, telemetry.FromAppConfig(a.cfg.Telemetry, version))
	if err != nil {
		return err
	}
	defer func() {
		if err := tel.Shutdown(context.Background()); err != nil {
			a.logger.Warn(ctx, "telemetry shutdown failed", zap.Error(err))
		}
	}()
	if h := tel.Health(); h.Degraded {
		a.logger.Warn(ctx, "telemetry degraded", zap.String("reason", h.Reason))
	}

	return serve(ctx, a,
		httpapi.WithTracer(tel.Tracer(httpapi.InstrumentationName)),
		httpapi.WithMeter(tel.Meter(httpapi.InstrumentationName)),
	)
}

// serve runs the API, the settings watcher and the locale subscription until
// ctx is done or the server fails.
func serve(ctx context.Context, a *app, opts ...httpapi.Option) error {
	if err := a.engine.SyncLocales(ctx, a.store); err != nil {
		return err
	}

	srvCfg := &httpapi.Config{
		Host:         a.cfg.Server.Host,
		Port:         a.cfg.Server.Port,
		RateLimit:    a.cfg.Server.RateLimit,
		RateBurst:    a.cfg.Server.RateBurst,
		MaxTextBytes: a.cfg.Server.MaxTextBytes.Int(),
	}
	if a.cfg.Metrics.Enabled {
		srvCfg.MetricsPath = a.cfg.Metrics.Path
	}
	srv, err := httpapi.NewServer(a.engine, a.store, a.logger, srvCfg, opts...)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	if a.cfg.Settings.Watch {
		if err := a.store.Start(gctx); err != nil {
			return fmt.Errorf("watching settings: %w", err)
		}
		defer a.store.Stop()
	}

	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout.Duration())
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down http server: %w", err)
		}
		return nil
	})

	a.logger.Info(ctx, "vibecope serving",
		zap.String("addr", a.cfg.Server.Addr()),
		zap.String("path", string(a.engine.Path())),
		zap.String("settings", a.store.Path()),
	)
	return g.Wait()
}
