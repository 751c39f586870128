package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"agrirank/internal/config"
	"agrirank/internal/dataprocessing"
	"agrirank/internal/exporter"
	"agrirank/internal/infrastructure"
	"agrirank/internal/operations"
	"agrirank/internal/report"
	"agrirank/internal/validation"
)

func newReportCmd(opts *globalOptions) *cobra.Command {
	var quiet bool
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Write the composite ranking workbook and CSV",
		Long: `Load the source, rank every month with the configured strategy and write
the ranking workbook and the flat CSV to the output directory. The report
is printed as Markdown unless --quiet is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			return withPipeline(cmd.Context(), cfg, logger, func(ctx context.Context, p *operations.Pipeline, src dataprocessing.Source) error {
				r, err := p.Execute(ctx, src)
				if err != nil {
					return err
				}

				workbook, err := exporter.NewWorkbookWriter(cfg.Output.Dir, logger).WriteRanking(cfg.Output.Workbook, r)
				if err != nil {
					return err
				}
				csvPath, err := exporter.NewCSVWriter(cfg.Output.Dir, logger).WriteRanking(cfg.Output.CSV, r)
				if err != nil {
					return err
				}
				logger.InfoContext(ctx, "report written",
					slog.String("workbook", workbook),
					slog.String("csv", csvPath),
					slog.Int("months", len(r.Months)))

				if !quiet {
					fmt.Fprint(cmd.OutOrStdout(), report.RenderMarkdown(r))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not print the Markdown report")
	return cmd
}

func newCriteriaCmd(opts *globalOptions) *cobra.Command {
	var quiet bool
	cmd := &cobra.Command{
		Use:   "criteria",
		Short: "Write the per-criterion top lists workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			return withPipeline(cmd.Context(), cfg, logger, func(ctx context.Context, p *operations.Pipeline, src dataprocessing.Source) error {
				r, err := p.ExecuteCriteria(ctx, src)
				if err != nil {
					return err
				}

				path, err := exporter.NewWorkbookWriter(cfg.Output.Dir, logger).WriteCriteria(cfg.Output.CriteriaWorkbook, r)
				if err != nil {
					return err
				}
				logger.InfoContext(ctx, "criteria report written",
					slog.String("workbook", path),
					slog.Any("criteria", r.Criteria))

				if !quiet {
					fmt.Fprint(cmd.OutOrStdout(), report.RenderCriteriaMarkdown(r))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not print the Markdown report")
	return cmd
}

// withPipeline sets up telemetry, the source and the pipeline for a one-shot
// run and tears telemetry down afterwards.
func withPipeline(ctx context.Context, cfg *config.Config, logger *slog.Logger,
	fn func(context.Context, *operations.Pipeline, dataprocessing.Source) error) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}

	paths := validation.NewPathValidator(logger)
	if cfg.Source.Kind == "" || cfg.Source.Kind == "workbook" {
		if err := paths.ValidateWorkbook(cfg.Source.Path); err != nil {
			return err
		}
	}
	if err := paths.ValidateOutputDirectory(cfg.Output.Dir); err != nil {
		return err
	}

	providers, err := infrastructure.InitializeOTel(cfg.Telemetry, logger)
	if err != nil {
		return err
	}
	defer func() {
		if shutdownErr := providers.Shutdown(context.Background()); shutdownErr != nil {
			logger.Warn("telemetry shutdown failed", slog.String("error", shutdownErr.Error()))
		}
	}()

	metrics, err := infrastructure.CreateBusinessMetrics(providers.Meter)
	if err != nil {
		return err
	}

	src, err := dataprocessing.NewSource(ctx, cfg.Source, logger)
	if err != nil {
		return err
	}

	p, err := operations.NewPipeline(cfg.Analysis, operations.Deps{
		Logger:  logger,
		Metrics: metrics,
		Tracer:  providers.Tracer,
	})
	if err != nil {
		return err
	}
	return fn(ctx, p, src)
}
