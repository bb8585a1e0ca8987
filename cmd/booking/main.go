package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/baechuer/studio-booking/internal/booking/clients"
	"github.com/baechuer/studio-booking/internal/booking/consumer"
	"github.com/baechuer/studio-booking/internal/booking/postgres"
	"github.com/baechuer/studio-booking/internal/booking/redis"
	"github.com/baechuer/studio-booking/internal/booking/rest"
	"github.com/baechuer/studio-booking/internal/booking/service"
	"github.com/baechuer/studio-booking/internal/bus"
	"github.com/baechuer/studio-booking/internal/config"
	"github.com/baechuer/studio-booking/internal/pkg/logger"
	mw "github.com/baechuer/studio-booking/internal/transport/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	if cfg.LogLevel != "" {
		_ = os.Setenv("LOG_LEVEL", cfg.LogLevel)
	}

	logger.Init()
	log := logger.Logger.With().
		Str("service", "booking-service").
		Str("env", cfg.AppEnv).
		Logger()

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- Postgres ----
	dbPool, err := pgxpool.New(rootCtx, cfg.DBDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("postgres pool create failed")
	}
	defer dbPool.Close()

	{
		pingCtx, cancel := context.WithTimeout(rootCtx, 5*time.Second)
		defer cancel()

		if err := dbPool.Ping(pingCtx); err != nil {
			log.Fatal().Err(err).Msg("postgres ping failed")
		}
		log.Info().Msg("postgres connected")
	}

	repo := postgres.New(dbPool)
	if err := repo.EnsureSchema(rootCtx); err != nil {
		log.Fatal().Err(err).Msg("schema setup failed")
	}

	// ---- Redis (rate limiting; best effort) ----
	var cache mw.RateLimitCache
	if cfg.RLEnabled {
		rc := redis.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)

		pingCtx, cancel := context.WithTimeout(rootCtx, 2*time.Second)
		defer cancel()

		if err := rc.Client.Ping(pingCtx).Err(); err != nil {
			log.Warn().Err(err).Msg("redis ping failed (continuing)")
		} else {
			log.Info().Msg("redis connected")
		}
		cache = rc
	}

	// ---- Event bus ----
	pub := bus.NewPublisher(cfg.RabbitURL, log)
	defer pub.Close()

	cons := consumer.New(repo, pub)
	sub := bus.NewSubscriber(cfg.RabbitURL, "booking-service", log)
	go sub.Run(rootCtx, cons.Handle)

	// ---- Application service ----
	svc := service.New(
		repo,
		clients.NewAccessClient(cfg.AccessURL),
		clients.NewQuotaClient(cfg.QuotaURL),
		pub,
	)
	h := rest.NewHandler(svc, cfg.LocalTZ)

	httpHandler := rest.NewRouter(rest.RouterDeps{
		Handler:  h,
		Cache:    cache,
		RLLimit:  cfg.RLLimit,
		RLWindow: cfg.RLWindow,
	})

	// ---- HTTP server ----
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.Port).Msg("http server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-rootCtx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		log.Error().Err(err).Msg("http server crashed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info().Msg("shutdown complete")
}
