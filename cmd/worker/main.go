package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"woovideo/internal/adapter/repo"
	"woovideo/internal/events"
	"woovideo/internal/infra"
	"woovideo/internal/reaper"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv).With().Str("cmd", "worker").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()

	runner := infra.NewSQLRunner(pool, logger)

	r := reaper.New(repo.NewJobRepository(runner), events.NewPGPublisher(runner), reaper.Options{
		StaleAfter: cfg.JobStaleAfter,
		Interval:   cfg.ReaperInterval,
		BatchSize:  cfg.ReaperBatchSize,
		Logger:     logger,
	})

	if err := r.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("worker: stopped with error")
	}
	logger.Info().Msg("worker: stopped")
}
