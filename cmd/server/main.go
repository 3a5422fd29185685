package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/JuanMolinaNavarro/Metricas-WhatsApp/internal/auth"
	"github.com/JuanMolinaNavarro/Metricas-WhatsApp/internal/config"
	"github.com/JuanMolinaNavarro/Metricas-WhatsApp/internal/db"
	httpapi "github.com/JuanMolinaNavarro/Metricas-WhatsApp/internal/http"
	"github.com/JuanMolinaNavarro/Metricas-WhatsApp/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	level, _ := zerolog.ParseLevel(cfg.LogLevel)
	logger := log.Level(level).With().Str("service", "metricas-whatsapp").Logger()

	loc, err := time.LoadLocation(cfg.LocalTZ)
	if err != nil {
		logger.Fatal().Err(err).Str("tz", cfg.LocalTZ).Msg("invalid local timezone")
	}

	ctx := context.Background()
	store, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure db pool")
	}
	defer store.Close()

	// The database may come up after us; wait for it with capped backoff.
	pingBackoff := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 8)
	err = backoff.Retry(func() error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return store.Ping(pingCtx)
	}, backoff.WithContext(pingBackoff, ctx))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect db")
	}

	if err := store.EnsureSchema(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to apply schema")
	}

	if cfg.SAUsername != "" && cfg.SAPassword != "" {
		hash, err := auth.HashPassword(cfg.SAPassword)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to hash sa password")
		}
		if err := store.UpsertSuperAdmin(ctx, cfg.SAUsername, hash, cfg.SAFirstName, cfg.SALastName); err != nil {
			logger.Fatal().Err(err).Msg("failed to seed sa user")
		}
	}

	ingestor := service.NewIngestor(store, loc)
	router := httpapi.Router(cfg, store, ingestor, logger)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Str("tz", cfg.LocalTZ).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShutdown)
	logger.Info().Msg("server stopped")
}
