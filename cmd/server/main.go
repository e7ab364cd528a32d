package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/dhruvjindal555/AlumLink-sub001/internal/api"
	"github.com/dhruvjindal555/AlumLink-sub001/internal/api/middleware"
	"github.com/dhruvjindal555/AlumLink-sub001/internal/auth"
	"github.com/dhruvjindal555/AlumLink-sub001/internal/chat"
	"github.com/dhruvjindal555/AlumLink-sub001/internal/config"
	"github.com/dhruvjindal555/AlumLink-sub001/internal/handlers"
	"github.com/dhruvjindal555/AlumLink-sub001/internal/notify"
	"github.com/dhruvjindal555/AlumLink-sub001/internal/presence"
	"github.com/dhruvjindal555/AlumLink-sub001/internal/store"
	"github.com/dhruvjindal555/AlumLink-sub001/internal/ws"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	var logger zerolog.Logger
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	} else {
		logger = zerolog.New(os.Stdout).
			With().
			Timestamp().
			Logger()
	}

	ctx := context.Background()

	// Initialize the data store. PostgreSQL when configured, SQLite
	// otherwise (development and single-node deployments).
	var dataStore store.DataStore
	if cfg.DatabaseURL != "" {
		pgStore, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres connection failed")
		}
		dataStore = pgStore
		logger.Info().Msg("connected to PostgreSQL")
	} else {
		path := cfg.SQLitePath
		if path == "" {
			path = "alumlink.db"
		}
		sqliteStore, err := store.NewSQLiteStore(ctx, path)
		if err != nil {
			logger.Fatal().Err(err).Msg("sqlite open failed")
		}
		dataStore = sqliteStore
		logger.Info().Str("path", path).Msg("using SQLite")
	}
	defer dataStore.Close()

	// Initialize Redis (search index and rate limiting)
	var redisStore *store.RedisStore
	if cfg.RedisURL != "" {
		var err error
		redisStore, err = store.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connection failed")
		}
		defer redisStore.Close()
		logger.Info().Msg("connected to Redis")
	}

	// Wire the messaging core
	tokens := auth.NewJWT(cfg.JWTSecret)
	registry := presence.NewRegistry()

	var index chat.Indexer
	if redisStore != nil {
		index = redisStore
	}
	chatSvc := chat.NewService(dataStore, index, logger)
	fanout := notify.NewFanout(dataStore, registry, logger)

	grace := time.Duration(cfg.PresenceGraceSeconds) * time.Second
	gateway := ws.NewGateway(registry, chatSvc, fanout, dataStore, tokens, grace, logger)

	var limiter *middleware.RateLimiter
	if redisStore != nil {
		limiter = middleware.NewRateLimiter(redisStore.Client(), logger, middleware.RateLimiterConfig{
			Whitelist:        cfg.RateLimitWhitelist,
			AutoBlockEnabled: cfg.AutoBlockEnabled,
		})
	}

	// Create router
	router := api.NewRouter(logger, api.Deps{
		Handler: handlers.NewHandler(dataStore, chatSvc, registry, redisStore),
		Gateway: gateway,
		Tokens:  tokens,
		Limiter: limiter,
	})

	// Create server. WriteTimeout stays zero because WebSocket
	// connections are long lived.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Env).
			Dur("presence_grace", grace).
			Msg("starting AlumLink messaging server")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server...")

	// Graceful shutdown with 30 second timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server stopped")
}
