// Command server runs the Heartlink backend: a mutual-interest alarm
// matching service with real-time websocket delivery and external push
// notifications.
//
// Startup order: env, logging, config, storage, tracing, notification
// fan-out, HTTP router, then the server itself with graceful shutdown.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	_ "github.com/haeun-dev/heartlink-backend/docs"
	"github.com/haeun-dev/heartlink-backend/internal/config"
	httpapi "github.com/haeun-dev/heartlink-backend/internal/http"
	"github.com/haeun-dev/heartlink-backend/internal/notify"
	"github.com/haeun-dev/heartlink-backend/internal/observability"
	"github.com/haeun-dev/heartlink-backend/internal/repo"
	"github.com/haeun-dev/heartlink-backend/internal/sysutil"
	"github.com/haeun-dev/heartlink-backend/internal/ws"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

const shutdownGrace = 10 * time.Second

// @title           Heartlink API
// @version         1.0
// @description     Mutual-interest alarm matching and notification service.
// @BasePath        /api/v1
func main() {
	// Local development convenience; a missing .env is not an error.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	log.Info().
		Str("version", version).
		Str("port", cfg.Port).
		Str("gin_mode", cfg.GinMode).
		Msg("starting heartlink server")

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("run migrations")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("setup opentelemetry")
	}
	if cfg.OTEL.Enabled {
		if err := repo.EnableTracing(db); err != nil {
			log.Fatal().Err(err).Msg("enable database tracing")
		}
	}

	hub := ws.NewHub(cfg.WS.WriteTimeout)

	var pusher notify.Pusher = notify.NopPusher{}
	if cfg.Push.Enabled {
		p, err := notify.NewHTTPPusher(cfg.Push)
		if err != nil {
			log.Fatal().Err(err).Msg("configure push client")
		}
		pusher = p
		log.Info().Str("base_url", cfg.Push.BaseURL).Msg("push notifications enabled")
	} else {
		log.Info().Msg("push notifications disabled; real-time delivery only")
	}
	notifier := &notify.Notifier{
		Sessions:      hub,
		Pusher:        pusher,
		MatchTemplate: cfg.Push.MatchTemplate,
		PushTimeout:   cfg.Push.Timeout,
	}

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, db, notifier, hub, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		log.Error().Err(err).Msg("http server failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown")
	}
	if err := shutdownOTel(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("opentelemetry shutdown")
	}
	log.Info().Msg("server stopped")
}
