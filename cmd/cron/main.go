package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mohamedkhairy/oi-tracker/internal/config"
	"github.com/mohamedkhairy/oi-tracker/pkg/logger"
)

// The cron worker drives the API service's ingestion from outside the
// process: one POST to /api/v1/trigger-update per interval. The pipeline
// skips overlapping triggers itself, so this loop stays dumb.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.LogLevel, cfg.Environment); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting trigger worker",
		logger.String("target", cfg.Cron.TargetURL),
		logger.Duration("interval", cfg.Cron.Interval),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		logger.Info("Shutting down trigger worker")
		cancel()
	}()

	client := &http.Client{Timeout: 2 * time.Minute}

	trigger(ctx, client, cfg.Cron.TargetURL)

	ticker := time.NewTicker(cfg.Cron.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Trigger worker stopped")
			return
		case <-ticker.C:
			trigger(ctx, client, cfg.Cron.TargetURL)
		}
	}
}

func trigger(ctx context.Context, client *http.Client, url string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		logger.Error("Failed to build trigger request",
			logger.ErrorField(err),
		)
		return
	}

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		logger.Warn("Trigger request failed, will retry next interval",
			logger.ErrorField(err),
		)
		return
	}
	defer resp.Body.Close()

	var body struct {
		Status   string `json:"status"`
		Recorded int    `json:"recorded"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		logger.Warn("Unreadable trigger response",
			logger.Int("http_status", resp.StatusCode),
			logger.ErrorField(err),
		)
		return
	}

	logger.Info("Triggered ingestion cycle",
		logger.Int("http_status", resp.StatusCode),
		logger.String("result", body.Status),
		logger.Int("recorded", body.Recorded),
	)
}
