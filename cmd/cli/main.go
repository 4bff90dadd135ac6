package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/kosarica/deal-planner/config"
	"github.com/kosarica/deal-planner/internal/app"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  *zerolog.Logger
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "deal-planner",
	Short: "Deal Planner CLI - plan grocery shopping around discounts",
	Long: `A CLI for the deal planner. It optimizes meal shopping lists against
discounted offers near a location, inspects the offers a source returns,
imports offer feeds (CSV or XLSX) into Postgres and parses feeds locally.`,
	PersistentPreRunE: persistentPreRun,
	SilenceUsage:      true,
}

// Execute runs the root command with a context cancelled on SIGINT/SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config/config.yaml or ./config.yaml)")
}

// persistentPreRun loads configuration and the logger before each command.
func persistentPreRun(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "help" || cmd.Name() == "completion" {
		return nil
	}
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logging := cfg.Logging
	logging.Format = "console"
	logger = app.NewLogger(logging, "deal-planner-cli")
	return nil
}

// buildApp wires the configured source and cache.
func buildApp(ctx context.Context) (*app.App, error) {
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize: %w", err)
	}
	return a, nil
}

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
