package engine

import (
	"context"
	"fmt"
	"testing"

	"github.com/athapong/bim-synthesis/pkg/assembly"
	"github.com/athapong/bim-synthesis/pkg/config"
	"github.com/athapong/bim-synthesis/pkg/model"
	"github.com/athapong/bim-synthesis/pkg/strategies"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completed(id, content string, confidence float64) model.ChunkResult {
	return model.ChunkResult{
		ChunkID:         id,
		Content:         content,
		Status:          model.ChunkStatusCompleted,
		ConfidenceScore: confidence,
		TokensUsed:      10,
	}
}

func query(intent model.QueryIntent) model.QueryContext {
	return model.QueryContext{QueryID: "q-1", OriginalQuery: "How much concrete?", Intent: intent}
}

func TestSynthesizeVolumeConflict(t *testing.T) {
	e, err := New(config.Default())
	require.NoError(t, err)

	chunks := []model.ChunkResult{
		completed("c1", "Volume: 10 m³", 0.9),
		completed("c2", "Volume: 10 m³", 0.9),
		completed("c3", "Volume: 25 m³", 0.9),
	}
	result, err := e.Synthesize(context.Background(), chunks, query(model.IntentQuantity))
	require.NoError(t, err)

	require.Len(t, result.ConflictsDetected, 1)
	c := result.ConflictsDetected[0]
	assert.Equal(t, model.ConflictQuantitativeMismatch, c.Type)
	assert.Equal(t, "volume", c.Subject())
	assert.Equal(t, []string{"c1", "c2", "c3"}, c.ConflictingChunks)

	require.Len(t, result.ConflictsResolved, 1)
	res := result.ConflictsResolved[0]
	assert.Equal(t, model.StrategyStatisticalAnalysis, res.Strategy)
	assert.InDelta(t, 15.0, res.ResolvedValue.(float64), 1e-9)
	assert.Equal(t, 0.7, res.Confidence)

	assert.Less(t, result.QualityMetrics.Consistency, 1.0)
	require.NoError(t, result.QualityMetrics.Validate())
	assert.Equal(t, result.QualityMetrics.OverallQuality(), result.OverallQuality)

	assert.Equal(t, "quantity_aggregation", result.AggregationMetadata.StrategyUsed)
	volume := result.StructuredOutput["quantities"].(map[string]interface{})["volume"].(map[string]interface{})
	assert.Equal(t, strategies.OpSum, volume["operation"])
	assert.Equal(t, 45.0, volume["value"])
	assert.InDelta(t, 15.0, volume["resolved_value"].(float64), 1e-9)

	assert.Equal(t, 30, result.TokensUsed)
	assert.Equal(t, 3, result.ChunksProcessed)
	assert.Contains(t, result.DataInsights, "1 conflicts detected, 1 resolved")
	assert.NotEmpty(t, result.ResultID)
}

func TestSynthesizeEmptyChunk(t *testing.T) {
	e, err := New(config.Default())
	require.NoError(t, err)

	result, err := e.Synthesize(context.Background(), []model.ChunkResult{
		completed("c1", "   ", 0.65),
		completed("c2", "Volume: 10 m³", 0.9),
	}, query(model.IntentQuantity))
	require.NoError(t, err)

	require.Len(t, result.ExtractedData, 2)
	empty := result.ExtractedData[0]
	assert.Equal(t, "c1", empty.ChunkID)
	assert.Equal(t, 0.65, empty.ExtractionConfidence)
	assert.Empty(t, empty.Entities)
	assert.Empty(t, empty.Quantities)
	assert.Empty(t, empty.Properties)
	assert.Empty(t, empty.Relationships)
}

func TestSynthesizeDegradedChunk(t *testing.T) {
	e, err := New(config.Default())
	require.NoError(t, err)

	failed := completed("c2", "Volume: 12 m³", 0.9)
	failed.Status = "failed"
	result, err := e.Synthesize(context.Background(), []model.ChunkResult{completed("c1", "Volume: 10 m³", 0.9), failed}, query(model.IntentQuantity))
	require.NoError(t, err)

	assert.Equal(t, 0.0, result.ExtractedData[1].ExtractionConfidence)
	assert.NotEmpty(t, result.Diagnostics)
	assert.Empty(t, result.ConflictsDetected)
	assert.Equal(t, 1, result.AggregationMetadata.ChunksSuccessful)
}

func TestSynthesizeRequiresQueryID(t *testing.T) {
	e, err := New(config.Default())
	require.NoError(t, err)

	_, err = e.Synthesize(context.Background(), nil, model.QueryContext{Intent: model.IntentQuantity})
	assert.True(t, errors.Is(err, model.ErrValidation))
}

func TestSynthesizeCancelled(t *testing.T) {
	e, err := New(config.Default())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.Synthesize(ctx, []model.ChunkResult{completed("c1", "Volume: 10 m³", 0.9)}, query(model.IntentQuantity))
	assert.ErrorIs(t, err, context.Canceled)
}

type explodingStrategy struct{}

func (explodingStrategy) Name() string { return "exploding" }
func (explodingStrategy) Aggregate(context.Context, strategies.Input) (*strategies.Output, error) {
	panic("kaboom")
}

func TestSynthesizeStrategyFailureFallsBack(t *testing.T) {
	e, err := New(config.Default(), WithStrategy(model.IntentCost, explodingStrategy{}))
	require.NoError(t, err)

	result, err := e.Synthesize(context.Background(), []model.ChunkResult{completed("c1", "Total cost: 1200 EUR", 0.9)}, query(model.IntentCost))
	require.NoError(t, err)
	assert.Equal(t, strategies.SummaryStrategy, result.AggregationMetadata.StrategyUsed)
	require.NotEmpty(t, result.Diagnostics)
	assert.Contains(t, result.Diagnostics[len(result.Diagnostics)-1], "exploding")
}

func TestSynthesizeAssemblyFailureIsReturned(t *testing.T) {
	e, err := New(config.Default())
	require.NoError(t, err)
	e.assemble = func(assembly.Input) *model.EnhancedQueryResult { panic("no result") }

	result, err := e.Synthesize(context.Background(), []model.ChunkResult{completed("c1", "Volume: 10 m³", 0.9)}, query(model.IntentQuantity))
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "assembly phase failed: no result")
}

func TestSynthesizeResolutionDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.EnableConflictResolution = false
	e, err := New(cfg)
	require.NoError(t, err)

	result, err := e.Synthesize(context.Background(), []model.ChunkResult{
		completed("c1", "Volume: 10 m³", 0.9),
		completed("c2", "Volume: 11 m³", 0.9),
	}, query(model.IntentQuantity))
	require.NoError(t, err)
	assert.Len(t, result.ConflictsDetected, 1)
	assert.Empty(t, result.ConflictsResolved)
	assert.Less(t, result.QualityMetrics.ConflictResolutionRate, 1.0)
}

func TestSynthesizeKeepsChunkOrderUnderLimit(t *testing.T) {
	e, err := New(config.Default(), WithConcurrencyLimit(2))
	require.NoError(t, err)

	var chunks []model.ChunkResult
	for i := 0; i < 12; i++ {
		chunks = append(chunks, completed(fmt.Sprintf("c%02d", i), fmt.Sprintf("Volume: %d m³", 10+i%2), 0.9))
	}
	result, err := e.Synthesize(context.Background(), chunks, query(model.IntentUnknown))
	require.NoError(t, err)
	for i, d := range result.ExtractedData {
		assert.Equal(t, chunks[i].ChunkID, d.ChunkID)
	}
	assert.Equal(t, strategies.SummaryStrategy, result.AggregationMetadata.StrategyUsed)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Tolerances.ConfidenceThreshold = 1.5
	_, err := New(cfg)
	assert.Error(t, err)
}
