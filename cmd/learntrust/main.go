package main

import (
	"log/slog"
	"os"

	"learntrust/internal/config"
	"learntrust/internal/infra/db"
	httpinfra "learntrust/internal/infra/http"
)

func main() {
	cfg := config.FromEnv()
	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	store, err := db.NewStore(cfg)
	if err != nil {
		logger.Error("failed to init store", "error", err)
		os.Exit(1)
	}

	srv, err := httpinfra.NewServer(cfg, store, logger)
	if err != nil {
		logger.Error("failed to init server", "error", err)
		os.Exit(1)
	}
	logger.Info("listening", "addr", cfg.HTTPAddr)
	if err := srv.Run(); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
