package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/safih1/policedispatch/app"
	"github.com/safih1/policedispatch/config"
	"github.com/safih1/policedispatch/infra/logger"
)

var (
	cfgPath  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "policedispatch",
	Short: "Police emergency dispatch coordinator",
	Long: `Runs one officer session against the dispatch backend: receives
emergencies over the police channel, assigns the nearest available officer
and serves the operator API.`,
	PersistentPreRunE: applyLogLevel,
	RunE:              run,
	SilenceUsage:      true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "minimum log level (debug, info, warn, error); overrides LOG_LEVEL")
}

// applyLogLevel exports the flag to LOG_LEVEL, which every component logger reads.
func applyLogLevel(cmd *cobra.Command, args []string) error {
	if logLevel == "" {
		return nil
	}
	return os.Setenv("LOG_LEVEL", logLevel)
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

func run(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	svc, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()
	return svc.Run(ctx)
}
