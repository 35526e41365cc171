package main

import (
	"context"
	"net/http"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/anasakil/chat-app-techniq8/internal/api"
	"github.com/anasakil/chat-app-techniq8/internal/archive"
	"github.com/anasakil/chat-app-techniq8/internal/auth"
	"github.com/anasakil/chat-app-techniq8/internal/config"
	"github.com/anasakil/chat-app-techniq8/internal/crypto"
	"github.com/anasakil/chat-app-techniq8/internal/directory"
	"github.com/anasakil/chat-app-techniq8/internal/gateway"
	"github.com/anasakil/chat-app-techniq8/internal/presence"
	"github.com/anasakil/chat-app-techniq8/internal/queue"
	"github.com/anasakil/chat-app-techniq8/internal/router"
	"github.com/anasakil/chat-app-techniq8/internal/signal"
	"github.com/anasakil/chat-app-techniq8/internal/tracker"
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

	// Initialize the user directory: PostgreSQL when configured, SQLite
	// fallback otherwise
	var dir directory.Directory
	if cfg.DatabaseURL != "" {
		pgDir, err := directory.NewPostgresDirectory(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres connection failed")
		}
		dir = pgDir
		logger.Info().Msg("user directory on PostgreSQL")
	} else {
		sqlDir, err := directory.NewSQLiteDirectory(ctx, cfg.SQLitePath)
		if err != nil {
			logger.Fatal().Err(err).Msg("sqlite open failed")
		}
		dir = sqlDir
		logger.Info().Str("path", cfg.SQLitePath).Msg("user directory on SQLite")
	}
	defer dir.Close()

	// Initialize the message archive (optional)
	var arc *archive.Archive
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		var err error
		arc, err = archive.NewArchive(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connection failed")
		}
		defer arc.Close()
		redisClient = arc.Client()
		logger.Info().Msg("message archive on Redis")
	}

	// Message content codec
	codec, err := crypto.NewCodec(cfg.EncryptionSecret, cfg.EncryptionSalt)
	if err != nil {
		logger.Fatal().Err(err).Msg("codec initialization failed")
	}

	// Optional token verifier for the gateway
	var verifier auth.Verifier
	if cfg.JWTSecret != "" {
		jwtVerifier, err := auth.NewJWTVerifier(cfg.JWTSecret)
		if err != nil {
			logger.Fatal().Err(err).Msg("verifier initialization failed")
		}
		verifier = jwtVerifier
	} else {
		logger.Warn().Msg("JWT_SECRET not set, connections are trusted by declaration")
	}

	// Core collaborators
	reg := presence.NewRegistry()
	pending := queue.NewPendingQueue(cfg.PendingQueueCap)
	tr := tracker.NewTracker(cfg.HistoryCap)
	rt := router.New(logger, codec, reg, pending, tr, dir, arc)
	relay := signal.NewRelay(logger, reg)

	// Realtime gateway
	gw := gateway.New(logger, gateway.Config{
		Addr:           cfg.GatewayAddr,
		OutboundBuffer: cfg.OutboundBuffer,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		MaxFrameBytes:  cfg.MaxFrameBytes,
	}, verifier, reg, rt, relay)

	go func() {
		logger.Info().
			Str("addr", cfg.GatewayAddr).
			Msg("starting realtime gateway")

		if err := gw.ListenAndServe(); err != nil {
			logger.Fatal().Err(err).Msg("gateway failed")
		}
	}()

	// Ops HTTP surface
	mux := api.NewRouter(logger, reg, pending, tr, dir, arc, redisClient)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Env).
			Msg("starting ops server")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("ops server failed to start")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	ossignal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down...")

	// Graceful shutdown with 30 second timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	gw.Shutdown(30 * time.Second)

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("ops server forced to shutdown")
	}

	logger.Info().Msg("server stopped")
}
