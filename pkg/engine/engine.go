// Package engine runs the seven synthesis phases over a query's chunk
// answers: extraction, normalization, conflict detection, conflict
// resolution, aggregation, quality assessment and result assembly.
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/athapong/bim-synthesis/pkg/assembly"
	"github.com/athapong/bim-synthesis/pkg/config"
	"github.com/athapong/bim-synthesis/pkg/conflicts"
	"github.com/athapong/bim-synthesis/pkg/extraction"
	"github.com/athapong/bim-synthesis/pkg/metrics"
	"github.com/athapong/bim-synthesis/pkg/model"
	"github.com/athapong/bim-synthesis/pkg/normalization"
	"github.com/athapong/bim-synthesis/pkg/quality"
	"github.com/athapong/bim-synthesis/pkg/strategies"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Phase names used in diagnostics and metrics.
const (
	PhaseExtraction    = "extraction"
	PhaseNormalization = "normalization"
	PhaseDetection     = "detection"
	PhaseResolution    = "resolution"
	PhaseAggregation   = "aggregation"
	PhaseQuality       = "quality"
	PhaseAssembly      = "assembly"
)

// Engine synthesizes chunk answers into one result. It holds no per-query
// state, so one Engine may serve concurrent queries.
type Engine struct {
	cfg        config.Config
	extractor  *extraction.Extractor
	normalizer *normalization.Normalizer
	detector   *conflicts.Detector
	resolver   *conflicts.Resolver
	aggregator *strategies.Aggregator
	assessor   *quality.Assessor
	assembler  *assembly.Assembler
	assemble   func(assembly.Input) *model.EnhancedQueryResult
	limit      int
	logger     *logrus.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithConcurrencyLimit bounds how many chunks are extracted at once.
// Zero or less means unbounded.
func WithConcurrencyLimit(n int) Option {
	return func(e *Engine) { e.limit = n }
}

// WithLogger sets the logger of the engine and every phase.
func WithLogger(logger *logrus.Logger) Option {
	return func(e *Engine) {
		if logger == nil {
			return
		}
		e.logger = logger
		e.extractor.WithLogger(logger)
		e.normalizer.WithLogger(logger)
		e.detector.WithLogger(logger)
		e.resolver.WithLogger(logger)
		e.aggregator.WithLogger(logger)
		e.assessor.WithLogger(logger)
		e.assembler.WithLogger(logger)
	}
}

// WithStrategy registers an aggregation strategy for an intent.
func WithStrategy(intent model.QueryIntent, s strategies.Strategy) Option {
	return func(e *Engine) { e.aggregator.Register(intent, s) }
}

// WithResolveFunc registers a resolution strategy for a conflict type.
func WithResolveFunc(kind model.ConflictType, fn conflicts.ResolveFunc) Option {
	return func(e *Engine) { e.resolver.Register(kind, fn) }
}

// New creates an engine for cfg.
func New(cfg config.Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	e := &Engine{
		cfg:        cfg,
		extractor:  extraction.New(),
		normalizer: normalization.New(),
		detector:   conflicts.NewDetector(cfg.Tolerances),
		resolver:   conflicts.NewResolver(cfg),
		aggregator: strategies.NewAggregator(),
		assessor:   quality.NewAssessor(),
		assembler:  assembly.NewAssembler(),
		logger:     logger,
	}
	e.assemble = e.assembler.Assemble
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Config returns the configuration the engine runs with.
func (e *Engine) Config() config.Config {
	return e.cfg
}

// Synthesize runs every phase over chunks. Phase failures degrade the result
// and are reported in its diagnostics; only cancellation of ctx or an
// invalid query is returned as an error.
func (e *Engine) Synthesize(ctx context.Context, chunks []model.ChunkResult, query model.QueryContext) (*model.EnhancedQueryResult, error) {
	if strings.TrimSpace(query.QueryID) == "" {
		return nil, errors.Wrap(model.ErrValidation, "query id is required")
	}
	query.Intent = model.ParseIntent(string(query.Intent))
	started := time.Now()
	logger := e.logger.WithFields(logrus.Fields{
		"query_id": query.QueryID,
		"intent":   query.Intent,
		"chunks":   len(chunks),
	})
	logger.Info("Starting synthesis")

	var diagnostics []string

	data, err := e.extract(ctx, chunks, query.Intent)
	if err != nil {
		return nil, errors.Wrap(err, "extraction")
	}
	for _, d := range data {
		for _, msg := range d.ProcessingErrors {
			diagnostics = append(diagnostics, fmt.Sprintf("chunk %s: %s", d.ChunkID, msg))
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	detected := guard(e, PhaseDetection, &diagnostics, []model.Conflict{}, func() []model.Conflict {
		return e.detector.Detect(data, query.Intent)
	})
	for _, c := range detected {
		metrics.ConflictsDetected.WithLabelValues(string(c.Type)).Inc()
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resolved := guard(e, PhaseResolution, &diagnostics, []model.ConflictResolution{}, func() []model.ConflictResolution {
		return e.resolver.Resolve(detected, data)
	})
	for _, r := range resolved {
		metrics.ConflictsResolved.WithLabelValues(string(r.Strategy)).Inc()
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	aggInput := strategies.Input{Data: data, Resolutions: resolved, Intent: query.Intent, Config: e.cfg}
	aggregated := guard(e, PhaseAggregation, &diagnostics, strategies.Summary(aggInput), func() *strategies.Output {
		out, diags := e.aggregator.Aggregate(ctx, aggInput)
		diagnostics = append(diagnostics, diags...)
		return out
	})

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	assessment := guard(e, PhaseQuality, &diagnostics, quality.Assessment{}, func() quality.Assessment {
		return e.assessor.Assess(quality.Input{
			Data:        data,
			Conflicts:   detected,
			Resolutions: resolved,
			Structured:  aggregated.Structured,
			Config:      e.cfg,
		})
	})
	metrics.OverallQuality.Observe(assessment.Metrics.OverallQuality())

	result, err := e.assembleResult(assembly.Input{
		Query:       query,
		Chunks:      chunks,
		Data:        data,
		Conflicts:   detected,
		Resolutions: resolved,
		Aggregation: aggregated,
		Assessment:  assessment,
		Config:      e.cfg,
		Started:     started,
		Diagnostics: diagnostics,
	})
	if err != nil {
		return nil, err
	}
	metrics.UpdateSystemMetrics()

	logger.WithFields(logrus.Fields{
		"conflicts":   len(detected),
		"resolutions": len(resolved),
		"strategy":    aggregated.Strategy,
		"quality":     result.OverallQuality,
		"duration":    time.Since(started),
	}).Info("Synthesis completed")
	return result, nil
}

// extract runs extraction and normalization for every chunk concurrently.
// Results keep the chunk order.
func (e *Engine) extract(ctx context.Context, chunks []model.ChunkResult, intent model.QueryIntent) ([]*model.ExtractedData, error) {
	timer := prometheus.NewTimer(metrics.PhaseDuration.WithLabelValues(PhaseExtraction))
	defer timer.ObserveDuration()

	out := make([]*model.ExtractedData, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	if e.limit > 0 {
		g.SetLimit(e.limit)
	}
	for i, chunk := range chunks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			extracted := e.extractor.Extract(chunk, intent)
			normalized := e.normalizer.Normalize(extracted)

			if len(normalized.ProcessingErrors) > len(extracted.ProcessingErrors) {
				metrics.PhaseFailures.WithLabelValues(PhaseNormalization).Inc()
			}
			status := "ok"
			if normalized.HasErrors() {
				status = "degraded"
				metrics.PhaseFailures.WithLabelValues(PhaseExtraction).Inc()
				e.logger.WithFields(logrus.Fields{
					"chunk_id": chunk.ChunkID,
					"errors":   normalized.ProcessingErrors,
				}).Warn("Chunk degraded")
			}
			metrics.ChunksProcessed.WithLabelValues(status).Inc()
			out[i] = normalized
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// assembleResult runs the assembly phase. Without a result there is nothing
// to fall back to, so a panic becomes the pipeline's error.
func (e *Engine) assembleResult(in assembly.Input) (result *model.EnhancedQueryResult, err error) {
	timer := prometheus.NewTimer(metrics.PhaseDuration.WithLabelValues(PhaseAssembly))
	defer timer.ObserveDuration()
	defer func() {
		if r := recover(); r != nil {
			e.logger.WithFields(logrus.Fields{
				"phase": PhaseAssembly,
				"panic": r,
			}).Error("Phase failed")
			metrics.PhaseFailures.WithLabelValues(PhaseAssembly).Inc()
			result, err = nil, errors.Errorf("%s phase failed: %v", PhaseAssembly, r)
		}
	}()
	return e.assemble(in), nil
}

// guard runs one phase, timing it and converting a panic into a diagnostic
// and the fallback value.
func guard[T any](e *Engine, phase string, diagnostics *[]string, fallback T, fn func() T) (out T) {
	timer := prometheus.NewTimer(metrics.PhaseDuration.WithLabelValues(phase))
	defer timer.ObserveDuration()
	defer func() {
		if r := recover(); r != nil {
			e.logger.WithFields(logrus.Fields{
				"phase": phase,
				"panic": r,
			}).Error("Phase failed, continuing with fallback")
			metrics.PhaseFailures.WithLabelValues(phase).Inc()
			*diagnostics = append(*diagnostics, fmt.Sprintf("%s: %v", phase, r))
			out = fallback
		}
	}()
	return fn()
}
