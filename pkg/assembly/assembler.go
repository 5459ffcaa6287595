// Package assembly merges the outputs of every synthesis phase into the
// final result.
package assembly

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/athapong/bim-synthesis/pkg/config"
	"github.com/athapong/bim-synthesis/pkg/model"
	"github.com/athapong/bim-synthesis/pkg/quality"
	"github.com/athapong/bim-synthesis/pkg/strategies"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Version is recorded in the aggregation metadata of every result.
const Version = "2.0"

// Recommendation thresholds.
const (
	lowConfidence   = 0.7
	lowCompleteness = 0.5
	lowConsistency  = 0.8
	lowReliability  = 0.6
	highSpread      = 0.1
	highMeasurement = 0.2
)

// phase algorithms always in play
var baseAlgorithms = []string{"pattern_extraction", "unit_normalization", "conflict_detection"}

// Input is everything the assembler reads.
type Input struct {
	Query       model.QueryContext
	Chunks      []model.ChunkResult
	Data        []*model.ExtractedData
	Conflicts   []model.Conflict
	Resolutions []model.ConflictResolution
	Aggregation *strategies.Output
	Assessment  quality.Assessment
	Config      config.Config
	Started     time.Time
	Diagnostics []string
}

// Assembler builds EnhancedQueryResult values.
type Assembler struct {
	logger *logrus.Logger
	now    func() time.Time
}

func NewAssembler() *Assembler {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	return &Assembler{logger: logger, now: time.Now}
}

// WithLogger replaces the assembler's logger.
func (a *Assembler) WithLogger(logger *logrus.Logger) *Assembler {
	if logger != nil {
		a.logger = logger
	}
	return a
}

// Assemble builds the result. Inputs are copied, never modified.
func (a *Assembler) Assemble(in Input) *model.EnhancedQueryResult {
	agg := in.Aggregation
	if agg == nil {
		agg = strategies.Summary(strategies.Input{Data: in.Data, Intent: in.Query.Intent, Config: in.Config})
	}
	m := in.Assessment.Metrics

	tokens, successful := 0, 0
	var cost float64
	for _, c := range in.Chunks {
		tokens += c.TokensUsed
		cost += c.Cost
		if c.Completed() {
			successful++
		}
	}

	data := make([]*model.ExtractedData, 0, len(in.Data))
	for _, d := range in.Data {
		data = append(data, d.Clone())
	}

	now := a.now()
	elapsed := time.Duration(0)
	if !in.Started.IsZero() {
		elapsed = now.Sub(in.Started)
	}

	algorithms := append([]string(nil), baseAlgorithms...)
	if len(in.Resolutions) > 0 {
		algorithms = append(algorithms, "conflict_resolution")
	}
	algorithms = append(algorithms, agg.Algorithms...)
	algorithms = append(algorithms, "quality_assessment")

	unresolved := len(in.Conflicts) - len(in.Resolutions)
	if unresolved < 0 {
		unresolved = 0
	}

	result := &model.EnhancedQueryResult{
		ResultID:        uuid.New().String(),
		QueryID:         in.Query.QueryID,
		OriginalQuery:   in.Query.OriginalQuery,
		Intent:          in.Query.Intent,
		Answer:          Answer(agg, in.Query.Intent),
		Confidence:      model.Clamp01(0.5*agg.Confidence + 0.5*m.Confidence),
		ChunksProcessed: len(in.Chunks),
		TokensUsed:      tokens,
		TotalCost:       cost,
		ProcessingTime:  elapsed,
		GeneratedAt:     now,

		ExtractedData:     data,
		ConflictsDetected: append(make([]model.Conflict, 0, len(in.Conflicts)), in.Conflicts...),
		ConflictsResolved: append(make([]model.ConflictResolution, 0, len(in.Resolutions)), in.Resolutions...),
		QualityMetrics:    m,
		OverallQuality:    m.OverallQuality(),
		StructuredOutput:  copyStructured(agg.Structured),
		AggregationMetadata: model.AggregationMetadata{
			StrategyUsed:       agg.Strategy,
			ChunksProcessed:    len(in.Chunks),
			ChunksSuccessful:   successful,
			ConflictsDetected:  len(in.Conflicts),
			ConflictsResolved:  len(in.Resolutions),
			ProcessingTime:     elapsed,
			AlgorithmsUsed:     algorithms,
			ValidationLevel:    in.Config.ValidationLevel,
			AggregationVersion: Version,
		},
		DataInsights:       Insights(in, agg, successful),
		Recommendations:    Recommendations(m, unresolved),
		UncertaintyFactors: UncertaintyFactors(in, len(in.Chunks)-successful),
		Diagnostics:        append([]string(nil), in.Diagnostics...),
	}

	a.logger.WithFields(logrus.Fields{
		"result_id": result.ResultID,
		"query_id":  result.QueryID,
		"strategy":  agg.Strategy,
		"quality":   result.OverallQuality,
	}).Info("Result assembled")
	return result
}

func copyStructured(s model.StructuredOutput) model.StructuredOutput {
	out := make(model.StructuredOutput, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Insights lists templated observations about the run.
func Insights(in Input, agg *strategies.Output, successful int) []string {
	insights := []string{
		fmt.Sprintf("%d of %d chunks processed successfully", successful, len(in.Chunks)),
		fmt.Sprintf("%d conflicts detected, %d resolved", len(in.Conflicts), len(in.Resolutions)),
	}
	if len(in.Conflicts) > 0 {
		counts := make(map[model.ConflictType]int)
		for _, c := range in.Conflicts {
			counts[c.Type]++
		}
		var top model.ConflictType
		for t, n := range counts {
			if n > counts[top] || (n == counts[top] && t < top) {
				top = t
			}
		}
		insights = append(insights, fmt.Sprintf("Most frequent conflict type: %s (%d)", top, counts[top]))
	}
	entities, quantities := 0, 0
	for _, d := range in.Data {
		entities += len(d.Entities)
		quantities += len(d.Quantities)
	}
	insights = append(insights,
		fmt.Sprintf("Extracted %d entities and %d quantities", entities, quantities),
		fmt.Sprintf("Aggregated with %s (confidence %.2f)", agg.Strategy, agg.Confidence),
		fmt.Sprintf("Overall quality %.2f", in.Assessment.Metrics.OverallQuality()),
	)
	return insights
}

// Recommendations gives templated advice for every threshold breach.
func Recommendations(m model.QualityMetrics, unresolved int) []string {
	recs := make([]string, 0)
	if m.Confidence < lowConfidence {
		recs = append(recs, "Improve extraction quality: chunk answers were read with low confidence")
	}
	if m.Completeness < lowCompleteness {
		recs = append(recs, "Ask for more specific data: key fields are missing from the chunk answers")
	}
	if m.Consistency < lowConsistency {
		recs = append(recs, "Review the conflicting chunk answers before relying on the result")
	}
	if unresolved > 0 {
		recs = append(recs, fmt.Sprintf("Resolve the %d remaining conflicts manually or raise the validation level", unresolved))
	}
	if m.Reliability < lowReliability {
		recs = append(recs, "Re-run failed or low-quality chunks")
	}
	if !m.ValidationPassed && len(m.ValidationIssues) > 0 {
		recs = append(recs, "Result failed validation: "+strings.Join(m.ValidationIssues, "; "))
	}
	return recs
}

// UncertaintyFactors names what makes the result uncertain.
func UncertaintyFactors(in Input, failedChunks int) []string {
	u := in.Assessment.Uncertainty
	factors := make([]string, 0)
	if u.Spread > highSpread {
		factors = append(factors, fmt.Sprintf("Quantities vary across chunks (coefficient of variation %.2f)", u.Spread))
	}
	if u.Measurement > highMeasurement {
		factors = append(factors, "Low extraction confidence in chunk answers")
	}
	resolved := make(map[string]bool, len(in.Resolutions))
	for _, r := range in.Resolutions {
		resolved[fmt.Sprintf("%s|%s", r.Conflict.Type, r.Conflict.Subject())] = true
	}
	unresolved := make(map[string]int)
	for _, c := range in.Conflicts {
		if !resolved[fmt.Sprintf("%s|%s", c.Type, c.Subject())] {
			unresolved[string(c.Type)]++
		}
	}
	types := make([]string, 0, len(unresolved))
	for t := range unresolved {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		factors = append(factors, fmt.Sprintf("Unresolved %s conflicts: %d", t, unresolved[t]))
	}
	if failedChunks > 0 {
		factors = append(factors, fmt.Sprintf("%d chunks did not complete", failedChunks))
	}
	errored := 0
	for _, d := range in.Data {
		if d.HasErrors() {
			errored++
		}
	}
	if errored > 0 {
		factors = append(factors, fmt.Sprintf("%d chunks had processing errors", errored))
	}
	return factors
}
