package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/medvault/grants/internal/app"
	"github.com/medvault/grants/internal/config"
)

// shutdownTimeout bounds how long a graceful shutdown may drain in-flight
// metrics requests before the daemon exits.
const shutdownTimeout = 30 * time.Second

// RunSweeper starts the expiry sweeper daemon with graceful shutdown support.
// Loads configuration, initializes the DI container, and runs the sweeper loop
// alongside the Prometheus metrics server. Blocks until receiving
// SIGINT/SIGTERM or encountering a fatal error.
func RunSweeper(ctx context.Context, version string) error {
	// Load configuration
	cfg := config.Load()

	gin.SetMode(gin.ReleaseMode)

	// Create DI container
	container := app.NewContainer(cfg)

	// Get logger from container
	logger := container.Logger()
	logger.Info("starting sweeper daemon", slog.String("version", version))

	// Ensure cleanup on exit
	defer closeContainer(container, logger)

	sweeper, err := container.SweeperUseCase(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize sweeper use case: %w", err)
	}

	metricsServer, err := container.MetricsServer()
	if err != nil {
		return fmt.Errorf("failed to initialize metrics server: %w", err)
	}

	// Setup graceful shutdown
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		if err := sweeper.Start(groupCtx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("sweeper error: %w", err)
		}
		return nil
	})

	group.Go(func() error {
		if err := metricsServer.Start(groupCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server error: %w", err)
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutdown signal received")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		return metricsServer.Shutdown(shutdownCtx)
	})

	return group.Wait()
}
