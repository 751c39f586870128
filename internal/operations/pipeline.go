package operations

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"agrirank/internal/commodity"
	"agrirank/internal/config"
	"agrirank/internal/dataprocessing"
	apperrors "agrirank/internal/errors"
	"agrirank/internal/infrastructure"
	"agrirank/internal/ranking"
	"agrirank/internal/report"
	"agrirank/pkg/contracts/domain"
	"agrirank/pkg/contracts/events"
)

// Deps are the collaborators of a Pipeline. Every field is optional.
type Deps struct {
	Logger  *slog.Logger
	Events  EventSink
	Metrics *infrastructure.BusinessMetrics
	Tracer  trace.Tracer
}

type criterion struct {
	metric domain.Metric
	engine *ranking.Engine
}

// Pipeline turns a dataset into a ranking report: clean, aggregate, rank,
// assemble. A Pipeline holds no per-run state and may be shared.
type Pipeline struct {
	cfg          config.AnalysisConfig
	parser       *dataprocessing.RateParser
	filter       *commodity.Filter
	cleaner      *dataprocessing.Cleaner
	productivity ranking.ProductivityPolicy
	aggregator   *ranking.Aggregator
	normalizer   ranking.Normalizer
	engine       *ranking.Engine
	criteria     []criterion
	assembler    *report.Assembler
	events       EventSink
	tracer       *RunTracer
	logger       *slog.Logger
}

// NewPipeline validates cfg and wires the stages. Every configuration
// problem surfaces here as a CONFIG error, before any data is touched.
func NewPipeline(cfg config.AnalysisConfig, deps Deps) (*Pipeline, error) {
	logger := infrastructure.WithComponent(deps.Logger, "pipeline")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	parser, err := dataprocessing.NewRateParser(dataprocessing.ParsePolicy(cfg.RateParsePolicy))
	if err != nil {
		return nil, err
	}
	policy, err := ranking.ProductivityPolicyFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	normalizer, err := ranking.NewNormalizer(cfg.DegenerateValue)
	if err != nil {
		return nil, err
	}
	strategy, err := ranking.FromConfig(cfg)
	if err != nil {
		return nil, err
	}

	opts := ranking.Options{Workers: cfg.Workers, Logger: deps.Logger}
	criteria := make([]criterion, 0, len(cfg.CriteriaMetrics))
	for _, name := range cfg.CriteriaMetrics {
		metric, err := domain.ParseMetric(name)
		if err != nil {
			return nil, apperrors.NewConfigError("unknown criteria metric", err).WithContext("field", "criteria_metrics")
		}
		s, err := ranking.NewSingleMetric(metric, cfg.CriteriaTopN)
		if err != nil {
			return nil, err
		}
		criteria = append(criteria, criterion{metric: metric, engine: ranking.NewEngine(s, normalizer, opts)})
	}

	sink := deps.Events
	if sink == nil {
		sink = discardSink{}
	}
	filter := commodity.NewFilterFromConfig(cfg)

	return &Pipeline{
		cfg:          cfg,
		parser:       parser,
		filter:       filter,
		cleaner:      dataprocessing.NewCleaner(parser, filter, deps.Logger),
		productivity: policy,
		aggregator:   ranking.NewAggregator(commodity.ProductivityFromConfig(cfg), policy, deps.Logger),
		normalizer:   normalizer,
		engine:       ranking.NewEngine(strategy, normalizer, opts),
		criteria:     criteria,
		assembler:    report.NewAssembler(),
		events:       sink,
		tracer:       NewRunTracer(deps.Tracer, deps.Metrics),
		logger:       logger,
	}, nil
}

// Strategy returns the configured ranking strategy.
func (p *Pipeline) Strategy() ranking.Strategy {
	return p.engine.Strategy()
}

// Execute loads src and ranks it under one run ID.
func (p *Pipeline) Execute(ctx context.Context, src dataprocessing.Source) (*report.Report, error) {
	ctx, _ = runContext(ctx)
	ds, err := p.Load(ctx, src)
	if err != nil {
		return nil, err
	}
	return p.Run(ctx, ds)
}

// ExecuteCriteria loads src and builds the per-criterion report.
func (p *Pipeline) ExecuteCriteria(ctx context.Context, src dataprocessing.Source) (*report.CriteriaReport, error) {
	ctx, _ = runContext(ctx)
	ds, err := p.Load(ctx, src)
	if err != nil {
		return nil, err
	}
	return p.RunCriteria(ctx, ds)
}

// Load reads the source table, reporting it as the load stage of the run
// carried by ctx.
func (p *Pipeline) Load(ctx context.Context, src dataprocessing.Source) (*dataprocessing.Dataset, error) {
	standalone := infrastructure.GetRunID(ctx) == ""
	ctx, runID := runContext(ctx)

	var ds *dataprocessing.Dataset
	err := p.stage(ctx, runID, events.StageLoad, standalone, func(ctx context.Context) (map[string]interface{}, error) {
		var err error
		ds, err = src.Load(ctx)
		if err != nil {
			return map[string]interface{}{"source": src.Describe()}, err
		}
		return map[string]interface{}{
			"source":       src.Describe(),
			"observations": len(ds.Observations),
			"fingerprint":  ds.Fingerprint,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return ds, nil
}

// Run ranks ds with the configured strategy.
func (p *Pipeline) Run(ctx context.Context, ds *dataprocessing.Dataset) (r *report.Report, err error) {
	ctx, runID := runContext(ctx)
	start := time.Now()
	ctx, span := p.tracer.TraceRun(ctx, runID, "ranking")
	defer func() { p.tracer.EndRun(ctx, span, time.Since(start), err) }()

	summaries, stats, err := p.prepare(ctx, runID, ds)
	if err != nil {
		return nil, err
	}

	var outcome *ranking.Outcome
	err = p.stage(ctx, runID, events.StageRank, false, func(ctx context.Context) (map[string]interface{}, error) {
		var err error
		outcome, err = p.engine.Run(ctx, summaries)
		if err != nil {
			return nil, err
		}
		p.tracer.RecordOutcome(ctx, outcome)
		return map[string]interface{}{
			"strategy": outcome.Strategy.Describe(),
			"months":   len(outcome.Buckets),
			"warnings": len(outcome.Warnings),
		}, nil
	})
	if err != nil {
		return nil, err
	}

	err = p.stage(ctx, runID, events.StageAssemble, true, func(ctx context.Context) (map[string]interface{}, error) {
		r = p.assembler.Assemble(outcome, p.metadata(runID, ds), stats)
		return map[string]interface{}{"months": len(r.Months), "rows": len(r.Scores)}, nil
	})
	if err != nil {
		return nil, err
	}
	p.logger.InfoContext(ctx, "ranking run completed",
		slog.String("run_id", runID),
		slog.Int("months", len(r.Months)),
		slog.Int("warnings", len(r.Diagnostics.Warnings)),
		slog.Duration("duration", time.Since(start)),
	)
	return r, nil
}

// RunCriteria ranks ds once per criteria metric, each by raw value with
// the criteria top N, and merges the results.
func (p *Pipeline) RunCriteria(ctx context.Context, ds *dataprocessing.Dataset) (r *report.CriteriaReport, err error) {
	ctx, runID := runContext(ctx)
	start := time.Now()
	ctx, span := p.tracer.TraceRun(ctx, runID, "criteria")
	defer func() { p.tracer.EndRun(ctx, span, time.Since(start), err) }()

	summaries, stats, err := p.prepare(ctx, runID, ds)
	if err != nil {
		return nil, err
	}

	outcomes := make([]report.CriteriaOutcome, 0, len(p.criteria))
	err = p.stage(ctx, runID, events.StageRank, false, func(ctx context.Context) (map[string]interface{}, error) {
		warnings := 0
		for _, c := range p.criteria {
			outcome, err := c.engine.Run(ctx, summaries)
			if err != nil {
				return map[string]interface{}{"metric": string(c.metric)}, err
			}
			p.tracer.RecordOutcome(ctx, outcome)
			warnings += len(outcome.Warnings)
			outcomes = append(outcomes, report.CriteriaOutcome{Metric: c.metric, Outcome: outcome})
		}
		return map[string]interface{}{"criteria": len(outcomes), "warnings": warnings}, nil
	})
	if err != nil {
		return nil, err
	}

	err = p.stage(ctx, runID, events.StageAssemble, true, func(ctx context.Context) (map[string]interface{}, error) {
		r = p.assembler.AssembleCriteria(outcomes, p.metadata(runID, ds), stats)
		return map[string]interface{}{"rows": len(r.Rows)}, nil
	})
	if err != nil {
		return nil, err
	}
	p.logger.InfoContext(ctx, "criteria run completed",
		slog.String("run_id", runID),
		slog.Int("criteria", len(r.Criteria)),
		slog.Int("rows", len(r.Rows)),
		slog.Duration("duration", time.Since(start)),
	)
	return r, nil
}

// prepare runs the clean and aggregate stages shared by both reports.
func (p *Pipeline) prepare(ctx context.Context, runID string, ds *dataprocessing.Dataset) ([]domain.CommodityMonthSummary, dataprocessing.CleaningStats, error) {
	if ds == nil {
		return nil, dataprocessing.CleaningStats{}, apperrors.NewAppValidationError("no dataset loaded")
	}

	var (
		cleaned []domain.CleanedObservation
		stats   dataprocessing.CleaningStats
	)
	err := p.stage(ctx, runID, events.StageClean, false, func(ctx context.Context) (map[string]interface{}, error) {
		cleaned, stats = p.cleaner.Clean(ds.Observations)
		p.tracer.RecordCleaning(ctx, stats)
		return map[string]interface{}{
			"input":    stats.Input,
			"kept":     stats.Kept,
			"excluded": stats.TotalExcluded(),
		}, nil
	})
	if err != nil {
		return nil, stats, err
	}

	var summaries []domain.CommodityMonthSummary
	err = p.stage(ctx, runID, events.StageAggregate, false, func(ctx context.Context) (map[string]interface{}, error) {
		summaries = p.aggregator.Aggregate(cleaned)
		return map[string]interface{}{"summaries": len(summaries)}, nil
	})
	if err != nil {
		return nil, stats, err
	}
	return summaries, stats, nil
}

// stage runs fn inside a span, publishing started and then completed or
// failed events. final marks the completed event as the end of the run.
func (p *Pipeline) stage(ctx context.Context, runID string, stage events.RunStage, final bool, fn func(context.Context) (map[string]interface{}, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	start := time.Now()
	ctx, span := p.tracer.TraceStage(ctx, runID, stage)
	p.publish(ctx, events.RunEvent{RunID: runID, Stage: stage, Status: events.StatusStarted})

	detail, err := fn(ctx)
	p.tracer.EndStage(span, time.Since(start), detail, err)
	if err != nil {
		if detail == nil {
			detail = make(map[string]interface{}, 1)
		}
		detail["error"] = err.Error()
		p.publish(ctx, events.RunEvent{RunID: runID, Stage: stage, Status: events.StatusFailed, Detail: detail})
		p.logger.ErrorContext(ctx, "stage failed",
			slog.String("run_id", runID),
			slog.String("stage", string(stage)),
			slog.String("error", err.Error()),
		)
		return err
	}

	p.publish(ctx, events.RunEvent{RunID: runID, Stage: stage, Status: events.StatusCompleted, Detail: detail, Final: final})
	p.logger.DebugContext(ctx, "stage completed",
		slog.String("run_id", runID),
		slog.String("stage", string(stage)),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

func (p *Pipeline) publish(ctx context.Context, event events.RunEvent) {
	event.At = time.Now().UTC()
	p.events.Publish(ctx, event)
}

func (p *Pipeline) metadata(runID string, ds *dataprocessing.Dataset) report.Metadata {
	return report.Metadata{
		RunID:               runID,
		InputFingerprint:    ds.Fingerprint,
		Origin:              ds.Origin,
		ParsePolicy:         string(p.parser.Policy()),
		DegenerateValue:     p.normalizer.DegenerateValue(),
		MissingProductivity: p.productivity.String(),
		Filter:              p.filter.Describe(),
	}
}

// runContext returns ctx with a run ID, starting a new run when ctx has none.
func runContext(ctx context.Context) (context.Context, string) {
	if id := infrastructure.GetRunID(ctx); id != "" {
		return ctx, id
	}
	return infrastructure.StartRun(ctx)
}
