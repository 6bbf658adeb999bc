package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ajayjoseph-creator/vibex-relay/internal/presence"
	"github.com/ajayjoseph-creator/vibex-relay/internal/server"
	"github.com/ajayjoseph-creator/vibex-relay/internal/store"
	"github.com/ajayjoseph-creator/vibex-relay/pkg/config"
	"github.com/ajayjoseph-creator/vibex-relay/pkg/logging"
)

func main() {
	logger := logging.New(logging.LevelInfo)
	slog.SetDefault(logger)

	cfg, err := config.Load(logger, "config")
	if err != nil {
		logger.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger = logging.New(logging.ParseLevel(cfg.LogLevel))
	slog.SetDefault(logger)

	messages, err := store.Open(cfg.Store.Path)
	if err != nil {
		logger.Error("Failed to open message store", slog.Any("error", err))
		os.Exit(1)
	}
	defer messages.Close()

	var mirror presence.Mirror = presence.Noop{}
	if cfg.Redis.Addr != "" {
		redisMirror, err := presence.NewRedisMirror(cfg.Redis, logger)
		if err != nil {
			logger.Error("Failed to connect presence mirror", slog.Any("error", err))
			os.Exit(1)
		}
		mirror = redisMirror
		logger.Info("Presence mirror enabled", slog.String("addr", cfg.Redis.Addr))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := server.NewApp(logger, ctx, cfg, messages, mirror)
	if err := app.Run(); err != nil {
		logger.Error("Application run failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("Application shut down successfully.")
}
