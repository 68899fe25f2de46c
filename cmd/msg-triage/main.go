package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mikey/llm-msg-triage/internal/adapters/ingest"
	"github.com/mikey/llm-msg-triage/internal/config"
	"github.com/mikey/llm-msg-triage/internal/core"
	"github.com/mikey/llm-msg-triage/internal/di"
	"go.uber.org/zap"
)

func main() {
	// Build the dependency injection container
	container, err := di.BuildContainer()
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	cfg *config.Config,
	logger *zap.Logger,
	pipeline *core.Pipeline,
	ingestServer *ingest.Server,
	store core.MessageStore,
	remote core.ScoreProvider,
) error {
	defer logger.Sync()

	pollInterval, err := cfg.GetDuration("pipeline.poll_interval")
	if err != nil || pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start the ingest listener
	if err := ingestServer.Start(); err != nil {
		logger.Error("Failed to start SMTP ingest", zap.Error(err))
		return err
	}

	// Run the pipeline worker
	done := make(chan error, 1)
	go func() {
		done <- pipeline.Run(ctx, pollInterval)
	}()

	logger.Info("Triage pipeline started",
		zap.Duration("poll_interval", pollInterval),
		zap.String("provider", cfg.GetString("llm.provider")))

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Info("Shutting down...")
	case err := <-done:
		if err != nil && err != context.Canceled {
			logger.Error("Pipeline stopped unexpectedly", zap.Error(err))
		}
	}

	cancel()

	// Stop the ingest listener
	if err := ingestServer.Stop(); err != nil {
		logger.Error("Failed to stop SMTP ingest", zap.Error(err))
	}

	// Close any resources that need closing
	if closer, ok := remote.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close remote scorer", zap.Error(err))
		}
	}

	if err := store.Close(); err != nil {
		logger.Error("Failed to close message store", zap.Error(err))
	}

	logger.Info("Shutdown complete")
	return nil
}
