package config

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	apperrors "agrirank/internal/errors"
	"agrirank/pkg/contracts/domain"
)

// AnalysisConfig is the configuration surface of one ranking run.
type AnalysisConfig struct {
	RateParsePolicy string `yaml:"rate_parse_policy" envconfig:"RATE_PARSE_POLICY" validate:"oneof=strict tolerant"`

	// Commodity filters. Both are applied when both are configured.
	CodeRanges    []CodeRange       `yaml:"code_ranges" envconfig:"CODE_RANGES" validate:"dive"`
	UseVocabulary bool              `yaml:"use_vocabulary" envconfig:"USE_VOCABULARY"`
	Vocabulary    map[string]string `yaml:"vocabulary" envconfig:"VOCABULARY"`

	// Productivity overrides merged over the built-in table, quintals per acre.
	Productivity        map[string]float64 `yaml:"productivity" envconfig:"PRODUCTIVITY" validate:"dive,gte=0"`
	MissingProductivity string             `yaml:"missing_productivity" envconfig:"MISSING_PRODUCTIVITY" validate:"oneof=default omit"`
	DefaultProductivity float64            `yaml:"default_productivity" envconfig:"DEFAULT_PRODUCTIVITY" validate:"gte=0"`

	Strategy string             `yaml:"strategy" envconfig:"STRATEGY" validate:"oneof=composite single"`
	Metric   string             `yaml:"metric" envconfig:"METRIC" validate:"required_if=Strategy single"`
	Metrics  []string           `yaml:"metrics" envconfig:"METRICS" validate:"dive,required"`
	Weights  map[string]float64 `yaml:"weights" envconfig:"WEIGHTS" validate:"dive,gte=0"`
	TopN     int                `yaml:"top_n" envconfig:"TOP_N" validate:"gt=0"`

	// DegenerateValue is emitted for every row when a metric is constant
	// across a month. Only 0 and 0.5 are accepted.
	DegenerateValue float64 `yaml:"degenerate_value" envconfig:"DEGENERATE_VALUE"`

	// Workers bounds concurrent month processing; 0 means one per CPU.
	Workers int `yaml:"workers" envconfig:"WORKERS" validate:"gte=0"`

	CriteriaMetrics []string `yaml:"criteria_metrics" envconfig:"CRITERIA_METRICS" validate:"dive,required"`
	CriteriaTopN    int      `yaml:"criteria_top_n" envconfig:"CRITERIA_TOP_N" validate:"gt=0"`
}

// CodeRange is an inclusive classification code interval.
type CodeRange struct {
	Min int `yaml:"min" validate:"gte=0"`
	Max int `yaml:"max" validate:"gtefield=Min"`
}

// Contains reports whether code lies inside the range.
func (r CodeRange) Contains(code int) bool {
	return code >= r.Min && code <= r.Max
}

func (r CodeRange) String() string {
	return fmt.Sprintf("%d-%d", r.Min, r.Max)
}

// ParseCodeRange parses "1001-1004" or a single code "1001".
func ParseCodeRange(s string) (CodeRange, error) {
	s = strings.TrimSpace(s)
	lo, hi, found := strings.Cut(s, "-")
	if !found {
		hi = lo
	}
	minCode, err := strconv.Atoi(strings.TrimSpace(lo))
	if err != nil {
		return CodeRange{}, fmt.Errorf("invalid code range %q", s)
	}
	maxCode, err := strconv.Atoi(strings.TrimSpace(hi))
	if err != nil {
		return CodeRange{}, fmt.Errorf("invalid code range %q", s)
	}
	return CodeRange{Min: minCode, Max: maxCode}, nil
}

// Decode implements envconfig.Decoder.
func (r *CodeRange) Decode(value string) error {
	parsed, err := ParseCodeRange(value)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// UnmarshalYAML accepts either "1001-1004" or {min: 1001, max: 1004}.
func (r *CodeRange) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var text string
	if err := unmarshal(&text); err == nil {
		return r.Decode(text)
	}
	var raw struct {
		Min int `yaml:"min"`
		Max int `yaml:"max"`
	}
	if err := unmarshal(&raw); err != nil {
		return err
	}
	r.Min, r.Max = raw.Min, raw.Max
	return nil
}

// DefaultCodeRanges are the vegetable classification codes of the market feed.
func DefaultCodeRanges() []CodeRange {
	return []CodeRange{{Min: 1001, Max: 1004}, {Min: 2001, Max: 2043}}
}

// DefaultAnalysis returns the three-criteria equal-weight configuration.
func DefaultAnalysis() AnalysisConfig {
	return AnalysisConfig{
		RateParsePolicy:     RateParseStrict,
		CodeRanges:          DefaultCodeRanges(),
		MissingProductivity: MissingProductivityDefault,
		DefaultProductivity: DefaultProductivity,
		Strategy:            StrategyComposite,
		Metrics:             []string{"price", "volume", "activity_rate"},
		TopN:                DefaultTopN,
		DegenerateValue:     0,
		CriteriaMetrics:     []string{"price", "volume", "productivity"},
		CriteriaTopN:        DefaultCriteriaTopN,
	}
}

var (
	validateOnce    sync.Once
	structValidator *validator.Validate
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		structValidator = validator.New()
		structValidator.RegisterTagNameFunc(func(fld reflect.StructField) string {
			return yamlName(fld.Tag.Get("yaml"), fld.Name)
		})
	})
	return structValidator
}

// Validate checks the whole configuration.
func (c *Config) Validate() error {
	if err := validateStruct(c); err != nil {
		return err
	}
	return c.Analysis.validateSemantics()
}

// Validate checks the analysis settings. Every failure is a CONFIG error.
func (a AnalysisConfig) Validate() error {
	if err := validateStruct(a); err != nil {
		return err
	}
	return a.validateSemantics()
}

func validateStruct(v interface{}) error {
	err := getValidator().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.NewConfigError("invalid configuration", err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, formatFieldError(fe))
	}
	return apperrors.NewConfigError("invalid configuration: "+strings.Join(fields, "; "), nil).
		WithContext("fields", fields)
}

func (a AnalysisConfig) validateSemantics() error {
	if a.DegenerateValue != 0 && a.DegenerateValue != 0.5 {
		return apperrors.NewConfigError(
			fmt.Sprintf("degenerate_value must be 0 or 0.5, got %v", a.DegenerateValue), nil).
			WithContext("field", "degenerate_value")
	}

	for _, name := range a.CriteriaMetrics {
		if _, err := domain.ParseMetric(name); err != nil {
			return apperrors.NewConfigError("unknown criteria metric", err).WithContext("field", "criteria_metrics")
		}
	}

	switch a.Strategy {
	case StrategySingle:
		if _, err := domain.ParseMetric(a.Metric); err != nil {
			return apperrors.NewConfigError("unknown ranking metric", err).WithContext("field", "metric")
		}
		return nil
	case StrategyComposite:
		_, _, err := a.ResolvedWeights()
		return err
	}
	return nil
}

// ResolvedWeights returns the composite weights keyed by metric, in the
// order of Metrics. Omitted weights default to 1/k for k metrics. Weights
// that do not sum to 1 are rejected, never rescaled.
func (a AnalysisConfig) ResolvedWeights() ([]domain.Metric, map[domain.Metric]float64, error) {
	names := a.Metrics
	if len(names) == 0 && len(a.Weights) > 0 {
		for name := range a.Weights {
			names = append(names, name)
		}
		sort.Strings(names)
	}
	if len(names) == 0 {
		return nil, nil, apperrors.NewConfigError("composite strategy needs at least one metric", nil).
			WithContext("field", "metrics")
	}

	metrics := make([]domain.Metric, 0, len(names))
	seen := make(map[domain.Metric]bool, len(names))
	for _, name := range names {
		m, err := domain.ParseMetric(name)
		if err != nil {
			return nil, nil, apperrors.NewConfigError("unknown ranking metric", err).WithContext("field", "metrics")
		}
		if seen[m] {
			return nil, nil, apperrors.NewConfigError(fmt.Sprintf("metric %q listed twice", m), nil).
				WithContext("field", "metrics")
		}
		seen[m] = true
		metrics = append(metrics, m)
	}

	weights := make(map[domain.Metric]float64, len(metrics))
	if len(a.Weights) == 0 {
		for _, m := range metrics {
			weights[m] = 1 / float64(len(metrics))
		}
		return metrics, weights, nil
	}

	sum := 0.0
	for name, w := range a.Weights {
		m, err := domain.ParseMetric(name)
		if err != nil {
			return nil, nil, apperrors.NewConfigError("unknown weighted metric", err).WithContext("field", "weights")
		}
		if !seen[m] {
			return nil, nil, apperrors.NewConfigError(fmt.Sprintf("weight given for %q which is not a ranking metric", m), nil).
				WithContext("field", "weights")
		}
		weights[m] = w
		sum += w
	}
	for _, m := range metrics {
		if _, ok := weights[m]; !ok {
			return nil, nil, apperrors.NewConfigError(fmt.Sprintf("no weight given for metric %q", m), nil).
				WithContext("field", "weights")
		}
	}
	if math.Abs(sum-1) > WeightTolerance {
		return nil, nil, apperrors.NewConfigError(fmt.Sprintf("weights must sum to 1.0, got %.6f", sum), nil).
			WithContext("field", "weights")
	}
	return metrics, weights, nil
}

func yamlName(tag, fallback string) string {
	name, _, _ := strings.Cut(tag, ",")
	switch name {
	case "-":
		return ""
	case "":
		return fallback
	}
	return name
}

func formatFieldError(fe validator.FieldError) string {
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}
	switch fe.Tag() {
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte", "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gtefield":
		return fmt.Sprintf("%s must not be below %s", field, strings.ToLower(fe.Param()))
	case "required", "required_if":
		return fmt.Sprintf("%s is required", field)
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
