package diablo

import (
	"log/slog"
	"time"

	"github.com/Sir-Shaedy/Diablo/analyzer"
	"github.com/Sir-Shaedy/Diablo/corpus"
	"github.com/Sir-Shaedy/Diablo/finding"
	"github.com/Sir-Shaedy/Diablo/genai"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Option configures the Engine.
type Option func(*engineConfig)

// engineConfig holds configuration for an Engine instance.
type engineConfig struct {
	logger            *slog.Logger
	source            corpus.Source
	generator         genai.Generator
	analyzer          *analyzer.Analyzer
	tracer            trace.Tracer
	meter             metric.Meter
	generationTimeout time.Duration
	defaultSeverities []finding.Severity
}

// WithLogger sets a custom logger for the engine.
// If not provided, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(c *engineConfig) {
		c.logger = logger
	}
}

// WithSource sets the corpus source the engine refreshes from. Without a
// source, the corpus can only be loaded directly via LoadFindings.
func WithSource(src corpus.Source) Option {
	return func(c *engineConfig) {
		c.source = src
	}
}

// WithGenerator sets the external generation collaborator. Without a
// generator, evidence-only operations keep working; narrative operations
// return ErrGenerationUnavailable.
func WithGenerator(gen genai.Generator) Option {
	return func(c *engineConfig) {
		c.generator = gen
	}
}

// WithAnalyzer sets a custom structural analyzer, e.g. one built from a
// newer versioned pattern table. If not provided, one with the default
// tables is created.
func WithAnalyzer(a *analyzer.Analyzer) Option {
	return func(c *engineConfig) {
		c.analyzer = a
	}
}

// WithTracer sets an OpenTelemetry tracer for distributed tracing.
// If not provided, tracing is disabled.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *engineConfig) {
		c.tracer = tracer
	}
}

// WithMeter sets an OpenTelemetry meter for engine metrics.
// If not provided, metrics are disabled.
func WithMeter(meter metric.Meter) Option {
	return func(c *engineConfig) {
		c.meter = meter
	}
}

// WithGenerationTimeout bounds each external generation call. Zero or
// negative disables the per-call timeout.
func WithGenerationTimeout(d time.Duration) Option {
	return func(c *engineConfig) {
		c.generationTimeout = d
	}
}

// WithDefaultSeverities sets the severity allow-set operations use when a
// request does not specify one. The default is high and medium.
func WithDefaultSeverities(severities ...finding.Severity) Option {
	return func(c *engineConfig) {
		c.defaultSeverities = severities
	}
}
