package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/garyjia/docflow/internal/config"
	"github.com/garyjia/docflow/internal/container"
	"github.com/garyjia/docflow/internal/export"
	httpapi "github.com/garyjia/docflow/internal/interfaces/http"
	"github.com/garyjia/docflow/pkg/utils"
)

var version = "1.0.0"

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting document workflow service",
		zap.String("version", version),
		zap.Int("port", cfg.Server.Port),
		zap.String("numbering", cfg.Numbering.Backend))

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Service stopped with error", zap.Error(err))
	}
	logger.Info("Service stopped")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := container.NewContainer(cfg.ToContainerConfig(), logger)
	if err != nil {
		return fmt.Errorf("failed to build container: %w", err)
	}
	if err := c.Start(ctx); err != nil {
		return fmt.Errorf("failed to start container: %w", err)
	}
	defer func() {
		if err := c.Close(); err != nil {
			logger.Error("Failed to close container", zap.Error(err))
		}
	}()

	services := c.Services()
	httpapi.Version = version
	server := httpapi.NewServer(httpapi.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, httpapi.Dependencies{
		Deliveries:   services.Delivery,
		Purchases:    services.Purchase,
		Counters:     services.Counter,
		History:      services.History,
		DeliveryFlow: c.Workflows().Delivery,
		PurchaseFlow: c.Workflows().Purchase,
		Exporter:     export.NewRegisterExporter(services.Delivery, services.History, logger),
		Health: func(ctx context.Context) (bool, interface{}) {
			status := c.Health(ctx)
			return status.Overall, status.Components
		},
	}, container.NewLoggerAdapter(logger))

	// Blocks until the signal context is cancelled or the listener fails
	return server.Start(ctx)
}
