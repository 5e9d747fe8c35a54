package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/hms-console/internal/backend"
	"github.com/jwalitptl/hms-console/internal/config"
	"github.com/jwalitptl/hms-console/internal/console"
	"github.com/jwalitptl/hms-console/internal/email"
	authHandler "github.com/jwalitptl/hms-console/internal/handler/auth"
	dashboardHandler "github.com/jwalitptl/hms-console/internal/handler/dashboard"
	"github.com/jwalitptl/hms-console/internal/handler/health"
	"github.com/jwalitptl/hms-console/internal/handler/records"
	"github.com/jwalitptl/hms-console/internal/middleware"
	"github.com/jwalitptl/hms-console/internal/repository/postgres"
	"github.com/jwalitptl/hms-console/internal/router"
	"github.com/jwalitptl/hms-console/internal/service/capability"
	"github.com/jwalitptl/hms-console/internal/service/dashboard"
	"github.com/jwalitptl/hms-console/internal/worker"
	"github.com/jwalitptl/hms-console/pkg/auth"
	"github.com/jwalitptl/hms-console/pkg/logger"
	"github.com/jwalitptl/hms-console/pkg/messaging"
	"github.com/jwalitptl/hms-console/pkg/messaging/redis"
	"github.com/jwalitptl/hms-console/pkg/metrics"
	"github.com/jwalitptl/hms-console/pkg/security"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:          "hms-console",
		Short:        "Hospital operations console API",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")

	rootCmd.AddCommand(serveCmd(&configPath))
	rootCmd.AddCommand(migrateCmd(&configPath))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the console API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(*configPath)
			if err != nil {
				return err
			}
			return runServer(cfg)
		},
	}
}

func migrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(*configPath)
			if err != nil {
				return err
			}
			l := newLogger(cfg)

			db, err := postgres.NewDB(cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := postgres.Migrate(cmd.Context(), db); err != nil {
				return err
			}
			l.Info().Msg("schema applied")
			return nil
		},
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	l := logger.New(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})
	zerolog.DefaultContextLogger = &l
	return l
}

func newBroker(cfg *config.Config, l zerolog.Logger, m *metrics.Metrics) (messaging.Broker, error) {
	if cfg.Redis.URL == "" {
		l.Warn().Msg("no redis url, session events stay in this process")
		return messaging.NewMemoryBroker(), nil
	}
	broker, err := redis.NewRedisBroker(redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, l, m)
	if err != nil {
		return nil, err
	}
	return broker, nil
}

func runServer(cfg *config.Config) error {
	l := newLogger(cfg)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(reg, cfg.Metrics.Namespace)

	// Initialize database
	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	base := postgres.NewBaseRepository(db, m)
	sessions := postgres.NewSessionRepository(base)

	broker, err := newBroker(cfg, l, m)
	if err != nil {
		return fmt.Errorf("failed to connect to broker: %w", err)
	}
	defer broker.Close()

	hub := backend.NewHub(
		postgres.NewIdentityRepository(base),
		sessions,
		postgres.NewRecordRepository(base),
		security.NewBcryptHasher(cfg.Auth.BcryptCost),
		auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.Issuer),
		broker,
		backend.Config{SessionTTL: cfg.Auth.SessionTTL},
		l,
	)

	registry := console.NewRegistry(hub, console.Config{
		IdleTimeout:     cfg.Console.IdleTimeout,
		CleanupInterval: cfg.Console.CleanupInterval,
	}, l, m)
	defer registry.Close()

	aggregator := dashboard.NewAggregator(dashboard.Config{
		NotificationLimit: cfg.Dashboard.NotificationLimit,
		QueryTimeout:      cfg.Dashboard.QueryTimeout,
	}, l, m)

	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}

	r := router.NewRouter(
		registry,
		authHandler.NewHandler(email.NewService(cfg.SMTP, l), l),
		dashboardHandler.NewHandler(aggregator),
		records.NewHandler(capability.Routes),
		health.NewHandler(db, reg),
		l,
		m,
		router.RouterConfig{
			Cookie: middleware.ConsoleCookieConfig{
				Name:   cfg.Console.CookieName,
				Secret: cfg.Console.CookieSecret,
				Secure: cfg.Console.SecureCookie,
				MaxAge: int(cfg.Auth.SessionTTL.Seconds()),
			},
			CORSOrigins:    cfg.CORS.AllowedOrigins,
			RateLimit:      cfg.RateLimit.Enabled,
			RateRPS:        rate.Limit(cfg.RateLimit.RequestsPerSecond),
			RateBurst:      cfg.RateLimit.Burst,
			RequestTimeout: cfg.Server.RequestTimeout,
			MaxBodyBytes:   cfg.Server.MaxBodyBytes,
			MetricsPath:    metricsPath,
			Release:        !cfg.Log.Pretty,
		},
	)
	if err := r.Setup(); err != nil {
		return fmt.Errorf("failed to set up routes: %w", err)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return hub.Run(ctx)
	})
	g.Go(func() error {
		worker.NewSessionSweeper(sessions, cfg.Worker.SessionSweepInterval, l, m).Start(ctx)
		return nil
	})
	g.Go(func() error {
		l.Info().Int("port", cfg.Server.Port).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		l.Info().Msg("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		l.Error().Err(err).Msg("server stopped with error")
		return err
	}

	l.Info().Msg("server exited properly")
	return nil
}
