package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/gatehouse-io/gatehouse/pkg/api"
	"github.com/gatehouse-io/gatehouse/pkg/auth"
	"github.com/gatehouse-io/gatehouse/pkg/config"
	"github.com/gatehouse-io/gatehouse/pkg/observability"
	"github.com/gatehouse-io/gatehouse/pkg/store"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		observability.NewLogger(observability.ErrorLevel, os.Stderr).
			WithError(err).Error("invalid configuration")
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	if err := run(cfg, logger, metrics, registry); err != nil {
		logger.WithError(err).Error("server exited")
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *observability.Logger, metrics *observability.Metrics, registry *prometheus.Registry) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cm, err := store.NewConnectionManager(store.ConnectionConfig{
		PrimaryURL:  cfg.Database.URL,
		ReplicaURLs: store.ParseReplicaURLs(cfg.Database.ReplicaURLs),
		MaxConns:    cfg.Database.MaxOpenConns,
		IdleConns:   cfg.Database.MaxIdleConns,
		Timeout:     cfg.Database.ConnTimeout,
		MaxLifetime: 30 * time.Minute,
	}, logger)
	if err != nil {
		return err
	}
	defer cm.Close()

	if cfg.Database.MigrateOnUp {
		if err := store.RunMigrations(ctx, cm.Primary()); err != nil {
			return err
		}
	}

	redisClient := connectRedis(ctx, cfg.Redis, logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	server, err := api.NewServer(cm.Primary(), cfg, redisClient, logger, metrics)
	if err != nil {
		return err
	}

	if err := seedSuperuser(ctx, server.Users(), cfg, logger); err != nil {
		return err
	}
	if err := server.Settings().Refresh(ctx, "startup"); err != nil {
		logger.WithError(err).Warn("initial settings refresh failed")
	}
	if err := server.Purger().Start(cfg.Audit.PurgeSchedule); err != nil {
		return err
	}
	defer server.Purger().Stop()

	main := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      server,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	health := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: healthMux(cm, registry, cfg.Observability.MetricsEnabled),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.WithField("addr", main.Addr).Info("api server listening")
		if err := main.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		logger.WithField("addr", health.Addr).Info("health server listening")
		if err := health.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		health.Shutdown(shutdownCtx)
		return main.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// connectRedis dials the optional settings-cache redis. A missing URL or a
// failed ping degrades to database-only lookups rather than aborting startup.
func connectRedis(ctx context.Context, cfg config.RedisConfig, logger *observability.Logger) *redis.Client {
	if cfg.URL == "" {
		return nil
	}
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		logger.WithError(err).Warn("invalid redis URL, continuing without redis")
		return nil
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	opts.DB = cfg.DB
	opts.PoolSize = cfg.PoolSize
	opts.MaxRetries = cfg.MaxRetries

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.WithError(err).Warn("redis unreachable, continuing without redis")
		client.Close()
		return nil
	}
	logger.Info("redis connected")
	return client
}

// seedSuperuser creates the bootstrap admin account on first start when
// GATEHOUSE_ADMIN_PASSWORD is set. Existing accounts are never touched.
func seedSuperuser(ctx context.Context, users *store.UserStore, cfg *config.Config, logger *observability.Logger) error {
	password := os.Getenv("GATEHOUSE_ADMIN_PASSWORD")
	if password == "" {
		return nil
	}
	username := os.Getenv("GATEHOUSE_ADMIN_USERNAME")
	if username == "" {
		username = "admin"
	}

	if _, err := users.GetByUsername(ctx, username); err == nil {
		return nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	hash, err := auth.HashPassword(password, cfg.Auth.BcryptCost)
	if err != nil {
		return err
	}
	admin := &store.User{
		Username:    username,
		Password:    hash,
		Name:        "Administrator",
		IsActive:    true,
		IsSuperuser: true,
	}
	if err := users.Create(ctx, admin); err != nil {
		return err
	}
	logger.WithField("username", username).Info("superuser account created")
	return nil
}

func healthMux(cm *store.ConnectionManager, registry *prometheus.Registry, metricsEnabled bool) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := cm.HealthCheck(ctx); err != nil {
			http.Error(w, "unhealthy: "+err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	if metricsEnabled {
		mux.Handle("/metrics", observability.Handler(registry))
	}
	return mux
}
