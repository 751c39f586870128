// agrirank ranks market commodities by monthly profitability.
//
// Usage:
//
//	agrirank report   --input product_all.xlsx --out reports
//	agrirank criteria --input product_all.xlsx --out reports
//	agrirank serve    --port 8080
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"agrirank/internal/config"
	apperrors "agrirank/internal/errors"
	"agrirank/internal/infrastructure"
)

// Exit codes.
const (
	exitOK          = 0
	exitFailure     = 1
	exitConfigError = 2
)

func main() {
	err := newRootCmd().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "agrirank:", err)
	}
	infrastructure.CloseLogFile()
	os.Exit(exitCode(err))
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case apperrors.IsConfigError(err):
		return exitConfigError
	default:
		return exitFailure
	}
}

// globalOptions are the flags shared by every subcommand.
type globalOptions struct {
	configPath string
	input      string
	outDir     string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   config.AppName,
		Short: "Rank market commodities by monthly profitability",
		Long: `agrirank reads daily wholesale market rates, keeps the vegetable
commodities, aggregates them per month and ranks them by price, traded
volume, activity and productivity.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file path (default: ./config.yaml or ./configs/config.yaml)")
	root.PersistentFlags().StringVar(&opts.input, "input", "", "source workbook, or database file for the sqlite source")
	root.PersistentFlags().StringVar(&opts.outDir, "out", "", "output directory, overrides output.dir")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	root.AddCommand(
		newReportCmd(opts),
		newCriteriaCmd(opts),
		newServeCmd(opts),
		newVersionCmd(),
	)
	return root
}

// load resolves the configuration and the logger for a subcommand. Flag
// overrides are applied after file and environment values and validated
// again.
func (o *globalOptions) load() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, err
	}
	if o.input != "" {
		if cfg.Source.Kind == "sqlite" {
			cfg.Source.DSN = o.input
		} else {
			cfg.Source.Path = o.input
		}
	}
	if o.outDir != "" {
		cfg.Output.Dir = o.outDir
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}
	return cfg, logger, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", config.AppName, config.AppVersion)
		},
	}
}
