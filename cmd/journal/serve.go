package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/trogers1052/trade-journal/internal/api"
	"github.com/trogers1052/trade-journal/internal/auth"
	"github.com/trogers1052/trade-journal/internal/cache"
	"github.com/trogers1052/trade-journal/internal/journal"
	"github.com/trogers1052/trade-journal/internal/kafka"
	"github.com/trogers1052/trade-journal/internal/observability"
	"github.com/trogers1052/trade-journal/internal/scheduler"
	"github.com/trogers1052/trade-journal/internal/storage"
	"github.com/trogers1052/trade-journal/internal/storage/memory"
)

func newServeCmd(a *app) *cobra.Command {
	var useMemory bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context(), useMemory)
		},
	}

	cmd.Flags().BoolVar(&useMemory, "use-memory", false, "Keep all data in memory instead of Postgres")
	return cmd
}

func (a *app) serve(parent context.Context, useMemory bool) error {
	cfg := a.cfg
	logger := a.logger

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Storage
	var store storage.Store
	var health api.Pinger
	if useMemory {
		store = memory.New()
		logger.Warn().Msg("Using in-memory store, data will not survive a restart")
	} else {
		db, err := a.openDB()
		if err != nil {
			return err
		}
		store, health = db, db
		logger.Info().Str("host", cfg.Database.Host).Str("dbname", cfg.Database.DBName).Msg("Connected to database")
	}
	defer store.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(reg, "journal")

	// Cache and session tokens
	var responseCache cache.Cache = cache.NewMemoryCache()
	var tokens auth.TokenStore = auth.NewMemoryTokenStore()
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return err
		}
		responseCache = cache.NewRedisCache(rdb, "journal:cache:")
		tokens = auth.NewRedisTokenStore(rdb, "journal:session:")
		logger.Info().Str("addr", cfg.Redis.Addr).Msg("Connected to Redis")
	}

	// Journal service, optionally publishing to Kafka
	opts := []journal.Option{journal.WithMetrics(metrics)}
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer producer.Close()
		opts = append(opts, journal.WithPublisher(producer))
	}
	svc := journal.NewService(store, opts...)

	if cfg.Kafka.Enabled && cfg.Kafka.ImportTopic != "" {
		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.ImportTopic, cfg.Kafka.GroupID, svc, responseCache, logger)
		go func() {
			if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error().Err(err).Msg("Trade import consumer stopped")
			}
		}()
	}

	authenticator := auth.NewAuthenticator(store, tokens, cfg.Auth.TokenTTL)
	if cfg.Auth.Email != "" {
		if err := authenticator.EnsureUser(ctx, cfg.Auth.Email, cfg.Auth.Password); err != nil {
			return err
		}
	} else if cfg.Auth.Required {
		logger.Warn().Msg("Auth is required but no AUTH_EMAIL is configured; nobody can log in")
	}

	if cfg.Reconcile.Schedule != "" {
		sched := scheduler.New(ctx, svc, responseCache, metrics, logger)
		if err := sched.Register(cfg.Reconcile.Schedule); err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()
	}

	handler := api.NewHandler(api.Deps{
		Journal:      svc,
		Events:       store,
		Premarkets:   store,
		Auth:         authenticator,
		Cache:        responseCache,
		CacheTTL:     cfg.Cache.TTL,
		Metrics:      metrics,
		Health:       health,
		AuthRequired: cfg.Auth.Required,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           api.SetupRoutes(handler, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
