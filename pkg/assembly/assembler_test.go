package assembly

import (
	"testing"
	"time"

	"github.com/athapong/bim-synthesis/pkg/config"
	"github.com/athapong/bim-synthesis/pkg/model"
	"github.com/athapong/bim-synthesis/pkg/quality"
	"github.com/athapong/bim-synthesis/pkg/strategies"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixture(t *testing.T) Input {
	t.Helper()
	d1, err := model.NewExtractedData("c1", 0.8)
	require.NoError(t, err)
	d1.Quantities["volume"] = model.Quantity{Name: "volume", Value: 10, Unit: "m³"}
	d2, err := model.NewExtractedData("c2", 0.6)
	require.NoError(t, err)
	d2.Quantities["volume"] = model.Quantity{Name: "volume", Value: 25, Unit: "m³"}
	d2.ProcessingErrors = []string{"normalization: bad unit"}

	conflict, err := model.NewConflict(model.ConflictQuantitativeMismatch, "volume differs", []string{"c1", "c2"}, []interface{}{10.0, 25.0}, 0.8, nil, map[string]interface{}{"quantity": "volume"})
	require.NoError(t, err)
	units, err := model.NewConflict(model.ConflictInconsistentUnits, "units differ", []string{"c1", "c2"}, []interface{}{"m³", "l"}, 0.5, nil, map[string]interface{}{"quantity": "volume"})
	require.NoError(t, err)
	res, err := model.NewConflictResolution(conflict, model.StrategyStatisticalAnalysis, 17.5, 0.7, "mean of 2 values is 17.5")
	require.NoError(t, err)

	return Input{
		Query: model.QueryContext{QueryID: "q1", OriginalQuery: "What is the concrete volume?", Intent: model.IntentQuantity},
		Chunks: []model.ChunkResult{
			{ChunkID: "c1", Status: "completed", TokensUsed: 100, Cost: 0.01},
			{ChunkID: "c2", Status: "completed", TokensUsed: 50, Cost: 0.02},
			{ChunkID: "c3", Status: "failed"},
		},
		Data:        []*model.ExtractedData{d1, d2},
		Conflicts:   []model.Conflict{*conflict, *units},
		Resolutions: []model.ConflictResolution{*res},
		Aggregation: &strategies.Output{
			Strategy: "quantity_aggregation",
			Structured: model.StructuredOutput{
				"quantities": map[string]interface{}{
					"volume": map[string]interface{}{
						"operation":      "sum",
						"value":          35.0,
						"unit":           "m³",
						"count":          2,
						"resolved_value": 17.5,
					},
				},
			},
			Confidence: 0.8,
			Algorithms: []string{"quantity_grouping", "sum"},
		},
		Assessment: quality.Assessment{
			Metrics: model.QualityMetrics{
				Confidence:        0.6,
				Completeness:      0.3,
				Consistency:       0.75,
				Reliability:       0.5,
				ExtractionQuality: 0.7,
				ValidationIssues:  []string{"completeness 0.30 below 0.40"},
			},
			Uncertainty: quality.Uncertainty{Spread: 0.4, Measurement: 0.15},
		},
		Config:      config.Default(),
		Started:     time.Now().Add(-time.Second),
		Diagnostics: []string{"normalization: c2 failed"},
	}
}

func TestAssemble(t *testing.T) {
	in := fixture(t)
	r := NewAssembler().Assemble(in)

	assert.NotEmpty(t, r.ResultID)
	assert.Equal(t, "q1", r.QueryID)
	assert.Equal(t, 150, r.TokensUsed)
	assert.InDelta(t, 0.03, r.TotalCost, 1e-9)
	assert.Equal(t, 3, r.ChunksProcessed)
	assert.InDelta(t, 0.7, r.Confidence, 1e-9)
	assert.Equal(t, in.Assessment.Metrics.OverallQuality(), r.OverallQuality)
	assert.GreaterOrEqual(t, r.ProcessingTime, time.Second)

	assert.Equal(t, "volume: 35 m³ (sum of 2 values, conflicting reports resolved to 17.5).", r.Answer)

	meta := r.AggregationMetadata
	assert.Equal(t, "quantity_aggregation", meta.StrategyUsed)
	assert.Equal(t, 2, meta.ChunksSuccessful)
	assert.Equal(t, 2, meta.ConflictsDetected)
	assert.Equal(t, 1, meta.ConflictsResolved)
	assert.Equal(t, Version, meta.AggregationVersion)
	assert.Contains(t, meta.AlgorithmsUsed, "conflict_resolution")
	assert.Contains(t, meta.AlgorithmsUsed, "quantity_grouping")

	assert.Contains(t, r.DataInsights, "2 of 3 chunks processed successfully")
	assert.Contains(t, r.DataInsights, "2 conflicts detected, 1 resolved")
	assert.Contains(t, r.DataInsights, "Most frequent conflict type: inconsistent_units (1)")

	assert.Contains(t, r.Recommendations, "Improve extraction quality: chunk answers were read with low confidence")
	assert.Contains(t, r.Recommendations, "Review the conflicting chunk answers before relying on the result")
	assert.Contains(t, r.Recommendations, "Resolve the 1 remaining conflicts manually or raise the validation level")
	assert.Contains(t, r.Recommendations, "Result failed validation: completeness 0.30 below 0.40")

	assert.Equal(t, []string{
		"Quantities vary across chunks (coefficient of variation 0.40)",
		"Unresolved inconsistent_units conflicts: 1",
		"1 chunks did not complete",
		"1 chunks had processing errors",
	}, r.UncertaintyFactors)
	assert.Equal(t, []string{"normalization: c2 failed"}, r.Diagnostics)
}

func TestAssembleDoesNotMutateInputs(t *testing.T) {
	in := fixture(t)
	r := NewAssembler().Assemble(in)

	r.ExtractedData[0].Quantities["volume"] = model.Quantity{Name: "volume", Value: 99}
	r.StructuredOutput["extra"] = true
	r.ConflictsDetected[0].Description = "changed"
	r.Diagnostics[0] = "changed"

	assert.Equal(t, 10.0, in.Data[0].Quantities["volume"].Value)
	assert.NotContains(t, in.Aggregation.Structured, "extra")
	assert.Equal(t, "volume differs", in.Conflicts[0].Description)
	assert.Equal(t, "normalization: c2 failed", in.Diagnostics[0])
}

func TestAnswerFallsBackToSummary(t *testing.T) {
	out := strategies.Summary(strategies.Input{Data: []*model.ExtractedData{model.EmptyExtractedData("c1")}})
	assert.Equal(t, "Extracted 0 entities and 0 quantities from 1 chunks for a relationship query.", Answer(out, model.IntentRelationship))
}
