package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mohamedkhairy/oi-tracker/internal/api"
	"github.com/mohamedkhairy/oi-tracker/internal/config"
	"github.com/mohamedkhairy/oi-tracker/internal/ingest"
	"github.com/mohamedkhairy/oi-tracker/internal/query"
	"github.com/mohamedkhairy/oi-tracker/internal/session"
	"github.com/mohamedkhairy/oi-tracker/internal/settings"
	"github.com/mohamedkhairy/oi-tracker/internal/source"
	"github.com/mohamedkhairy/oi-tracker/internal/store"
	"github.com/mohamedkhairy/oi-tracker/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Init(cfg.LogLevel, cfg.Environment); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting OI tracker API service",
		logger.Int("port", cfg.API.Port),
		logger.String("source", cfg.Source.Provider),
		logger.Duration("ingest_interval", cfg.Ingest.Interval),
		logger.Bool("scheduler_enabled", cfg.Ingest.SchedulerEnabled),
	)

	// Session clock and store
	clock := session.NewClock()
	oiStore := store.New(clock,
		store.WithRetention(cfg.Store.RetentionSessions),
		store.WithBucket(cfg.Store.Bucket),
	)

	// Raw observation source
	var src source.Source
	switch cfg.Source.Provider {
	case "mock":
		src = source.NewMockSource(cfg.Source.Symbols, time.Now().UnixNano())
	default:
		src, err = source.NewNSESource(source.NSEConfig{
			BaseURL:           cfg.Source.BaseURL,
			Symbols:           cfg.Source.Symbols,
			RequestTimeout:    cfg.Source.RequestTimeout,
			RequestsPerSecond: cfg.Source.RequestsPerSecond,
		})
		if err != nil {
			logger.Fatal("Failed to initialize NSE source",
				logger.ErrorField(err),
			)
		}
	}

	// Pipeline, settings and query engine
	health := ingest.NewHealthTracker()
	pipeline := ingest.NewPipeline(src, oiStore, health, cfg.Ingest.FetchTimeout)
	thresholds := settings.NewStore()
	engine := query.NewEngine(oiStore, thresholds, health)

	// Root context cancelled on shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// In-process scheduler (external cron can drive trigger-update instead)
	if cfg.Ingest.SchedulerEnabled {
		scheduler := ingest.NewScheduler(pipeline, cfg.Ingest.Interval)
		go scheduler.Run(ctx)
	}

	// HTTP surface
	handler := api.NewStockHandler(engine, pipeline)
	router := api.NewRouter(handler, func() bool {
		return oiStore.Count() > 0
	})

	middlewares := api.ChainMiddleware(
		api.CORSMiddleware(),
		api.LoggingMiddleware(),
		api.RecoveryMiddleware(),
		api.RateLimitMiddleware(cfg.API.RateLimitRPS),
	)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.API.Port),
		Handler: middlewares(router),
	}

	go func() {
		logger.Info("Starting HTTP server",
			logger.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start HTTP server",
				logger.ErrorField(err),
			)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	logger.Info("Shutting down OI tracker API service")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error shutting down HTTP server",
			logger.ErrorField(err),
		)
	}

	logger.Info("OI tracker API service stopped")
}
