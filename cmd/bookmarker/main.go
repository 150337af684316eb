package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"bookmarker/internal/app"
	"bookmarker/internal/app/interceptors"
	"bookmarker/internal/config"
	"bookmarker/internal/lib/logger/prettyslog"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// .env is optional, real environment wins
	_ = godotenv.Load()

	cfg := config.MustLoad()

	log := setupLogger(cfg.Env)

	log.Info("starting application...",
		slog.String("env", cfg.Env),
		slog.String("address", cfg.HTTPServer.Address),
		slog.String("storage", cfg.Storage.Backend),
		slog.String("rate_limit", cfg.RateLimit.Backend))

	application, err := app.New(context.Background(), log, cfg)
	if err != nil {
		log.Error("failed to start application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	go application.HTTPSrv.MustRun()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)

	sign := <-stop

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	application.HTTPSrv.Stop(ctx)
	application.Stop(ctx)
	log.Info("application stopped.", slog.String("signal", sign.String()))
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case interceptors.EnvLocal:
		log = slog.New(
			prettyslog.NewPrettyHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case interceptors.EnvDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case interceptors.EnvProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}
