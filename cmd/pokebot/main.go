package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/susu3304/pokediabot/internal/api"
	"github.com/susu3304/pokediabot/internal/audit"
	"github.com/susu3304/pokediabot/internal/bot"
	"github.com/susu3304/pokediabot/internal/catalog"
	"github.com/susu3304/pokediabot/internal/config"
	"github.com/susu3304/pokediabot/internal/db"
	"github.com/susu3304/pokediabot/internal/trade"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := cfg.Logger()
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx := context.Background()

	// Connect to database
	database, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := database.RunMigrations(ctx); err != nil {
		return err
	}

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return err
	}

	opts := trade.Options{
		RequestTimeout: cfg.RequestTimeout,
		AddAllTimeout:  cfg.AddAllTimeout,
		Mode:           trade.FinalizeMode(cfg.FinalizeMode),
		Catalog:        cat,
		Logger:         logger,
	}
	if cfg.AuditDir != "" {
		archive := audit.NewTradeLog(cfg.AuditDir)
		defer archive.Close()
		opts.Archive = archive
		logger.Info("archiving trades", "dir", cfg.AuditDir)
	}

	discordBot, err := bot.New(cfg, database, opts)
	if err != nil {
		return err
	}
	if err := discordBot.Start(); err != nil {
		return err
	}
	defer discordBot.Stop()

	var apiServer *api.API
	if cfg.WebEnabled() {
		apiServer = api.New(cfg, database, discordBot.Trades(), logger)
		go func() {
			if err := apiServer.Start(); err != nil {
				logger.Error("API server error", "error", err)
			}
		}()
	}

	// Wait for signal to stop
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	if apiServer != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("API shutdown", "error", err)
		}
	}
	return nil
}
