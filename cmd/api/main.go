package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"woovideo/internal/adapter/repo"
	"woovideo/internal/events"
	"woovideo/internal/http/handlers"
	httpapi "woovideo/internal/http/httpapi"
	"woovideo/internal/infra"
	"woovideo/internal/infra/credentials"
	"woovideo/internal/infra/geoip"
	"woovideo/internal/n8n"
)

func main() {
	// Muat .env (opsional)
	_ = godotenv.Load()

	// Konfigurasi & logger
	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// DB pool (pgxpool)
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()
	runner := infra.NewSQLRunner(dbpool, logger)

	cipher, err := credentials.NewCipher(cfg.PreferencesSecret)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure preference cipher")
	}

	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	}
	defer resolver.Close()

	// Push fan-out: every instance listens, callbacks publish through Postgres
	hub := events.NewHub(logger, events.DefaultBuffer)
	defer hub.Close()
	listener := events.NewPGListener(cfg.DatabaseURL, hub, logger)
	go func() {
		if err := listener.Run(ctx); err != nil {
			logger.Error().Err(err).Msg("event listener stopped")
		}
	}()

	app := handlers.NewApp(cfg, logger)
	app.Users = repo.NewUserRepository(runner)
	app.Jobs = repo.NewJobRepository(runner)
	app.Prefs = credentials.NewStore(repo.NewPreferenceRepository(runner), cipher)
	app.Submitter = n8n.NewClient(n8n.Options{RequestTimeout: cfg.N8NTimeout, Logger: logger})
	app.Publisher = events.NewPGPublisher(runner)
	app.Hub = hub

	router := httpapi.NewRouter(app, httpapi.Options{
		JWTSecret:       cfg.JWTSecret,
		AllowedOrigins:  cfg.CORSAllowedOrigins,
		DefaultLocale:   cfg.DefaultLocale,
		CountryLookup:   resolver.CountryCode,
		RateLimitPerMin: cfg.RateLimitPerMin,
	})

	server := infra.NewHTTPServer(cfg, router, ctx)

	go func() {
		logger.Info().Str("addr", server.Addr()).Msg("API listening")
		if err := server.Start(); err != nil {
			logger.Error().Err(err).Msg("http server failed")
			stop()
		}
	}()

	<-ctx.Done()

	// open event streams end with the hub, so shutdown does not wait on them
	hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
