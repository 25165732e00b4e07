package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/garyjia/docflow/internal/config"
	"github.com/garyjia/docflow/internal/container"
	"github.com/garyjia/docflow/pkg/utils"
)

var (
	configPath string
	logLevel   string

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "docflowctl",
	Short:         "Operate the document workflow store",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return err
		}
		level := logLevel
		if level == "" {
			level = cfg.Logger.Level
		}
		logger, err = utils.NewCLILogger(level)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/config.yaml", "path to the configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level")

	rootCmd.AddCommand(migrateCmd, numberCmd, lifecycleCmd, exportCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// startContainer opens the store with migrations applied; callers must Close it
func startContainer(ctx context.Context) (*container.Container, error) {
	c, err := container.NewContainer(cfg.ToContainerConfig(), logger)
	if err != nil {
		return nil, err
	}
	if err := c.Start(ctx); err != nil {
		return nil, err
	}
	return c, nil
}
