// Package strategies combines normalized per-chunk data into one structured
// answer, with one aggregation strategy per query intent.
package strategies

import (
	"context"
	"fmt"
	"time"

	"github.com/athapong/bim-synthesis/pkg/config"
	"github.com/athapong/bim-synthesis/pkg/metrics"
	"github.com/athapong/bim-synthesis/pkg/model"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// SummaryStrategy names the count-only fallback.
const SummaryStrategy = "summary"

// Input is everything a strategy may read.
type Input struct {
	Data        []*model.ExtractedData
	Resolutions []model.ConflictResolution
	Intent      model.QueryIntent
	Config      config.Config
}

// Output is a strategy's structured answer and its own confidence estimate.
type Output struct {
	Strategy   string
	Structured model.StructuredOutput
	Confidence float64
	Algorithms []string
}

// Strategy aggregates the data of one intent.
type Strategy interface {
	Name() string
	Aggregate(ctx context.Context, in Input) (*Output, error)
}

// Aggregator dispatches to the strategy registered for the query intent.
// Intents without a strategy, and strategies that fail, get the count-only
// summary.
type Aggregator struct {
	strategies map[model.QueryIntent]Strategy
	logger     *logrus.Logger
}

// NewAggregator creates an aggregator with the quantity, component,
// material, spatial and cost strategies registered.
func NewAggregator() *Aggregator {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	return &Aggregator{
		strategies: map[model.QueryIntent]Strategy{
			model.IntentQuantity:  &QuantityStrategy{},
			model.IntentComponent: &ComponentStrategy{},
			model.IntentMaterial:  &MaterialStrategy{},
			model.IntentSpatial:   &SpatialStrategy{},
			model.IntentCost:      &CostStrategy{},
		},
		logger: logger,
	}
}

// WithLogger replaces the aggregator's logger.
func (a *Aggregator) WithLogger(logger *logrus.Logger) *Aggregator {
	if logger != nil {
		a.logger = logger
	}
	return a
}

// Register installs s for intent, replacing any previous strategy.
func (a *Aggregator) Register(intent model.QueryIntent, s Strategy) {
	a.strategies[intent] = s
}

// StrategyFor returns the strategy registered for intent, if any.
func (a *Aggregator) StrategyFor(intent model.QueryIntent) (Strategy, bool) {
	s, ok := a.strategies[intent]
	return s, ok
}

// Aggregate runs the strategy for in.Intent. It never fails: a missing or
// failing strategy yields the summary, and failures are returned as
// diagnostics.
func (a *Aggregator) Aggregate(ctx context.Context, in Input) (*Output, []string) {
	s, ok := a.strategies[in.Intent]
	if !ok {
		metrics.StrategyRuns.WithLabelValues(SummaryStrategy, "default").Inc()
		return Summary(in), nil
	}

	start := time.Now()
	out, err := run(ctx, s, in)
	if err != nil {
		a.logger.WithError(err).WithFields(logrus.Fields{
			"strategy": s.Name(),
			"intent":   in.Intent,
		}).Error("Aggregation strategy failed, using summary")
		metrics.StrategyRuns.WithLabelValues(s.Name(), "fallback").Inc()
		return Summary(in), []string{fmt.Sprintf("aggregation: %s failed: %v", s.Name(), err)}
	}

	metrics.StrategyRuns.WithLabelValues(s.Name(), "ok").Inc()
	a.logger.WithFields(logrus.Fields{
		"strategy":   s.Name(),
		"confidence": out.Confidence,
		"duration":   time.Since(start),
	}).Debug("Aggregation complete")
	return out, nil
}

func run(ctx context.Context, s Strategy, in Input) (out *Output, err error) {
	defer func() {
		if p := recover(); p != nil {
			out, err = nil, errors.Errorf("strategy panicked: %v", p)
		}
	}()
	out, err = s.Aggregate(ctx, in)
	if err == nil && out == nil {
		err = errors.New("strategy returned no output")
	}
	if err == nil && (out.Confidence < 0 || out.Confidence > 1) {
		err = errors.Errorf("strategy confidence %v out of range", out.Confidence)
	}
	return out, err
}

// Summary is the count-only fallback answer.
func Summary(in Input) *Output {
	var entities, quantities, properties, relationships int
	for _, d := range in.Data {
		if d == nil {
			continue
		}
		entities += len(d.Entities)
		quantities += len(d.Quantities)
		properties += len(d.Properties)
		relationships += len(d.Relationships)
	}
	return &Output{
		Strategy: SummaryStrategy,
		Structured: model.StructuredOutput{
			"summary": map[string]interface{}{
				"chunks":             len(in.Data),
				"entity_count":       entities,
				"quantity_count":     quantities,
				"property_count":     properties,
				"relationship_count": relationships,
			},
		},
		Confidence: meanConfidence(in.Data) * 0.5,
		Algorithms: []string{"count_summary"},
	}
}
