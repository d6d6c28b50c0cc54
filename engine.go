package diablo

import (
	"context"
	"log/slog"
	"time"

	"github.com/Sir-Shaedy/Diablo/analyzer"
	"github.com/Sir-Shaedy/Diablo/corpus"
	"github.com/Sir-Shaedy/Diablo/finding"
	"github.com/Sir-Shaedy/Diablo/genai"
	"github.com/Sir-Shaedy/Diablo/retrieval"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Engine is the evidence-grounded retrieval and generation engine. It owns
// the corpus index and the structural analyzer, and mediates every
// generation call through citation verification.
//
// An Engine is safe for concurrent use. Corpus refreshes swap snapshots
// atomically; in-flight operations keep the snapshot they started with.
type Engine struct {
	index    *corpus.Index
	analyzer *analyzer.Analyzer
	source   corpus.Source
	gen      genai.Generator
	logger   *slog.Logger
	tracer   trace.Tracer
	meter    metric.Meter
	metrics  *engineMetrics

	generationTimeout time.Duration
	defaultSeverities []finding.Severity
}

// New creates an Engine. All collaborators are optional: without a source
// the corpus is loaded via LoadFindings, and without a generator the
// narrative operations return ErrGenerationUnavailable while evidence-only
// retrieval keeps working.
func New(opts ...Option) (*Engine, error) {
	cfg := engineConfig{
		logger:            slog.Default(),
		defaultSeverities: []finding.Severity{finding.SeverityHigh, finding.SeverityMedium},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.analyzer == nil {
		a, err := analyzer.New(analyzer.WithLogger(cfg.logger))
		if err != nil {
			return nil, NewConfigurationError("New", err)
		}
		cfg.analyzer = a
	}

	metrics, err := initMetrics(cfg.meter)
	if err != nil {
		return nil, NewConfigurationError("New", err)
	}

	return &Engine{
		index:             corpus.NewIndex(),
		analyzer:          cfg.analyzer,
		source:            cfg.source,
		gen:               cfg.generator,
		logger:            cfg.logger,
		tracer:            cfg.tracer,
		meter:             cfg.meter,
		metrics:           metrics,
		generationTimeout: cfg.generationTimeout,
		defaultSeverities: cfg.defaultSeverities,
	}, nil
}

// Analyzer returns the engine's structural analyzer.
func (e *Engine) Analyzer() *analyzer.Analyzer {
	return e.analyzer
}

// CorpusSize returns the number of findings in the current snapshot.
func (e *Engine) CorpusSize() int {
	return e.index.Snapshot().Len()
}

// CorpusVersion returns the current snapshot's version identifier, or the
// empty string before the first load.
func (e *Engine) CorpusVersion() string {
	return e.index.Snapshot().Version()
}

// LoadFindings replaces the corpus with the given findings. Invalid records
// and duplicate IDs are dropped. Returns the number of findings accepted.
func (e *Engine) LoadFindings(findings []finding.Finding) int {
	snap := e.index.Replace(findings)
	e.logger.Info("corpus loaded",
		"findings", snap.Len(),
		"dropped", len(findings)-snap.Len(),
		"version", snap.Version())
	return snap.Len()
}

// RefreshCorpus fetches a fresh snapshot from the configured source and
// swaps it in atomically. On a fetch error the previous snapshot stays
// live and ErrCorpusUnavailable is returned.
func (e *Engine) RefreshCorpus(ctx context.Context) error {
	const op = "Engine.RefreshCorpus"
	if e.source == nil {
		return NewConfigurationError(op, ErrInvalidConfig).
			WithContext(map[string]any{"missing": "corpus source"})
	}

	ctx, span := e.startSpan(ctx, "diablo.corpus.refresh")
	defer endSpan(span)

	findings, err := e.source.Fetch(ctx)
	if err != nil {
		e.logger.Error("corpus refresh failed, keeping previous snapshot", "error", err)
		return NewRetrievalError(op, ErrCorpusUnavailable).
			WithContext(map[string]any{"cause": err.Error()})
	}

	snap := e.index.Replace(findings)
	e.logger.Info("corpus refreshed",
		"findings", snap.Len(),
		"version", snap.Version())
	return nil
}

// severitiesOrDefault falls back to the engine default allow-set.
func (e *Engine) severitiesOrDefault(severities []finding.Severity) []finding.Severity {
	if len(severities) > 0 {
		return severities
	}
	return e.defaultSeverities
}

// retrieve runs one lookup-then-rank pass over the current snapshot.
func (e *Engine) retrieve(ctx context.Context, op string, q retrieval.Query) retrieval.Result {
	snap := e.index.Snapshot()
	candidates := snap.Candidates(corpus.Lookup{
		Tags:       q.Tags,
		Text:       q.Text,
		Severities: q.Severities,
	})
	result := retrieval.Rank(q, candidates)
	e.recordRetrieval(ctx, op, result.Len())
	return result
}

// generate runs one external generation call under the configured timeout,
// stripping any markdown fence the provider wrapped the output in.
func (e *Engine) generate(ctx context.Context, op string, req genai.Request) (string, error) {
	if e.gen == nil {
		return "", ErrGenerationUnavailable
	}

	if e.generationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.generationTimeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := e.gen.Generate(ctx, req)
	e.recordGeneration(ctx, op, time.Since(start), err)
	if err != nil {
		return "", err
	}
	return genai.StripFences(resp.Content), nil
}
