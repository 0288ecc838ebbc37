package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/elum-utils/moderation/config"
	"github.com/elum-utils/moderation/core"
	"github.com/elum-utils/moderation/logger"
	"github.com/elum-utils/moderation/preference"
	"github.com/elum-utils/moderation/review"
	"github.com/elum-utils/moderation/transport/rest"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default ./config.yaml if present)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zl, err := logger.NewZap(cfg.Log.Level)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zl.Sync()
	zl.Info("starting moderation service", map[string]any{"addr": cfg.Server.Addr})

	ctx := context.Background()
	deps, err := buildDependencies(ctx, cfg, zl)
	if err != nil {
		zl.Error("failed to initialize dependencies", map[string]any{"error": err})
		os.Exit(1)
	}
	defer deps.Close(zl)

	threshold := cfg.Moderation.SentimentThreshold
	moderator := core.New(core.Options{
		Lexicon:            deps.lexicon,
		Sentiment:          deps.sentiment,
		Classifier:         deps.classifier,
		Cache:              deps.cache,
		Logger:             zl,
		SentimentThreshold: &threshold,
		ClassifierTimeout:  cfg.Moderation.ClassifierTimeout,
		MaxTextSize:        cfg.Moderation.MaxTextSize,
		CacheTTL:           cfg.Cache.TTL,
	})
	gate := preference.NewGate(deps.preferences, zl)
	reviews := review.NewService(deps.statuses, zl)

	router := rest.NewEngine(cfg.Server.Mode, zl)
	rest.NewHandler(moderator, gate, reviews, zl, rest.WithMaxBodyBytes(cfg.Server.MaxBodyBytes)).RegisterRoutes(router)

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Error("http server failed", map[string]any{"error": err})
			os.Exit(1)
		}
	}()
	zl.Info("moderation service started", map[string]any{
		"addr":       cfg.Server.Addr,
		"classifier": deps.classifier != nil,
		"cache":      cfg.Cache.Driver,
		"storage":    cfg.Storage.Driver,
	})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zl.Info("shutting down moderation service", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zl.Error("http server forced to shutdown", map[string]any{"error": err})
	}
	zl.Info("moderation service stopped", map[string]any{"processed": moderator.Metrics()})
}
