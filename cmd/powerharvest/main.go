package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/levenlabs/go-lflag"
	"github.com/levenlabs/go-llog"

	"github.com/mssimanju/powerharvest/pkg/cache"
	"github.com/mssimanju/powerharvest/pkg/config"
	"github.com/mssimanju/powerharvest/pkg/log"
	"github.com/mssimanju/powerharvest/pkg/output"
	"github.com/mssimanju/powerharvest/pkg/pipeline"
	"github.com/mssimanju/powerharvest/pkg/source"
)

func main() {
	// .env is optional; flags and real env still apply on top
	_ = godotenv.Load()

	// init packages
	cfg := config.Configured()

	// parse flags
	lflag.Configure()

	var level slog.Level
	// lflag automatically sets llog's level, but we need to set the slog level
	switch llog.GetLevel() {
	case llog.DebugLevel:
		level = slog.LevelDebug
	case llog.InfoLevel:
		level = slog.LevelInfo
	case llog.WarnLevel:
		level = slog.LevelWarn
	case llog.ErrorLevel:
		level = slog.LevelError
	default:
		panic(fmt.Errorf("unknown log level: %s", llog.GetLevel().String()))
	}

	logger := slog.New(log.NewHandler(level, cfg.PrettyLogs))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	ctx = log.With(ctx, logger)

	// configuration problems are the only error class fatal to the run
	if err := cfg.Validate(); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "invalid configuration", "error", err)
		os.Exit(2)
	}

	store, err := cache.New(cfg.CacheDir, cfg.CacheTTL())
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to open cache", "error", err)
		os.Exit(1)
	}
	writer, err := output.NewWriter(cfg.OutputDir)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to open output dir", "error", err)
		os.Exit(1)
	}

	h := pipeline.New(*cfg, source.NewClient(*cfg), store, writer)
	if _, err := h.Run(ctx); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "harvest failed", "error", err)
		os.Exit(1)
	}
	log.Ctx(ctx).InfoContext(ctx, "harvest exited cleanly")
}
