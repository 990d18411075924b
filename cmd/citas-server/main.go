package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/odontocare/citas-service/internal/api"
	"github.com/odontocare/citas-service/internal/auth"
	"github.com/odontocare/citas-service/internal/cita"
	"github.com/odontocare/citas-service/internal/config"
	"github.com/odontocare/citas-service/internal/db"
	"github.com/odontocare/citas-service/internal/directory"
	redisclient "github.com/odontocare/citas-service/internal/redis"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := zerolog.New(os.Stderr)
		l.Fatal().Err(err).Msg("config load error")
	}

	logger := newLogger(cfg.Env)
	logger.Info().Str("env", cfg.Env).Str("http_port", cfg.HTTPPort).Msg("citas-server starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres and apply schema
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()

	migCtx, cancelMig := context.WithTimeout(rootCtx, 10*time.Second)
	err = db.Migrate(migCtx, pgPool)
	cancelMig()
	if err != nil {
		logger.Fatal().Err(err).Msg("migration error")
	}
	logger.Info().Msg("connected to Postgres")

	// Redis is optional; without it the partial unique index alone guards
	// the booking invariant.
	var locker redisclient.Locker
	rdb, err := connectRedis(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection error")
	}
	if rdb != nil {
		defer func() {
			if err := rdb.Close(); err != nil {
				logger.Error().Err(err).Msg("error closing redis")
			}
		}()
		locker = redisclient.NewRedisSlotLocker(rdb, cfg.LockTTL)
		logger.Info().Msg("connected to Redis, slot locker enabled")
	} else {
		logger.Warn().Msg("REDIS_ADDR not set, running without the slot locker")
	}

	tokens := directory.NewTokenManager([]byte(cfg.JWTSecret), cfg.ServiceTokenTTL, cfg.ServiceTokenDelta)
	gateway := directory.NewClient(cfg.UserAdminURL, tokens)

	store := cita.NewPgStore(pgPool)
	service := cita.NewService(store, gateway, locker, logger)

	router := api.NewRouter(api.RouterConfig{
		Service:  service,
		Verifier: auth.NewVerifier([]byte(cfg.JWTSecret)),
		PgPool:   pgPool,
		Redis:    rdb,
		Logger:   logger,
		Env:      cfg.Env,
		Version:  version,
	})

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server error")
		}
	}()

	<-rootCtx.Done()
	logger.Info().Msg("shutting down citas-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func newLogger(env string) zerolog.Logger {
	if env == "dev" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func connectRedis(cfg config.Config) (*redis.Client, error) {
	if cfg.RedisAddr == "" {
		return nil, nil
	}
	return redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
}
