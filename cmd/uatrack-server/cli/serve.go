package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pandeptwidyaop/uatrack/internal/classifier"
	"github.com/pandeptwidyaop/uatrack/internal/server/config"
	"github.com/pandeptwidyaop/uatrack/internal/server/metrics"
	"github.com/pandeptwidyaop/uatrack/internal/server/web"
	"github.com/pandeptwidyaop/uatrack/internal/server/web/api"
	"github.com/pandeptwidyaop/uatrack/internal/server/web/middleware"
	"github.com/pandeptwidyaop/uatrack/internal/stats"
	"github.com/pandeptwidyaop/uatrack/internal/store"
	"github.com/pandeptwidyaop/uatrack/internal/version"
	"github.com/pandeptwidyaop/uatrack/pkg/logger"
)

const defaultShutdownTimeout = 10 * time.Second

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the tracking server",
	Long:  `Start the HTTP server with robots enforcement, request tracking, the request dashboard and metrics.`,
	RunE: func(_ *cobra.Command, _ []string) error {
		return runServer()
	},
}

// buildHandler wires the request pipeline for cfg on top of st.
func buildHandler(cfg *config.Config, st store.Store, m *metrics.Metrics) (http.Handler, *api.Handler) {
	policy := robotsPolicy(cfg.Robots)
	apiHandler := api.NewHandler(stats.NewAggregator(st), cfg.Dashboard, policy, m)

	var enforcer *middleware.RobotsEnforcer
	if cfg.Robots.Enabled {
		enforcer = middleware.NewRobotsEnforcer(policy, m)
	}

	var tracker *middleware.Tracker
	if cfg.Tracking.Enabled {
		tracker = middleware.NewTracker(classifier.New(nil), st,
			middleware.WithMetrics(m),
			middleware.WithSaveTimeout(cfg.Tracking.SaveTimeout),
		)
	}

	return web.NewRouter(apiHandler, enforcer, tracker), apiHandler
}

func runServer() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	info := version.GetVersion()
	logger.InfoEvent().
		Str("version", info.Version).
		Str("build_time", info.BuildDate).
		Str("git_commit", info.GitCommit).
		Msg("Starting uatrack server")

	database, err := openDatabase(cfg.Database)
	if err != nil {
		return err
	}
	if sqlDB, err := database.DB(); err == nil {
		defer sqlDB.Close()
	}

	handler, apiHandler := buildHandler(cfg, store.NewGormStore(database), metrics.New())
	defer apiHandler.Close()

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.InfoEvent().
			Str("addr", httpServer.Addr).
			Bool("tracking", cfg.Tracking.Enabled).
			Bool("robots_enforcement", cfg.Robots.Enabled).
			Msg("HTTP server listening")

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.InfoEvent().Msg("Shutting down server...")

	timeout := cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.ErrorEvent().Err(err).Msg("HTTP server shutdown error")
		return err
	}

	logger.InfoEvent().Msg("Server stopped")
	return nil
}
