package model

import (
	"math"
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewExtractedDataRejectsOutOfRangeScores(t *testing.T) {
	for _, score := range []float64{1.5, -0.1, math.NaN()} {
		d, err := NewExtractedData("c1", score)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrValidation))
		assert.Nil(t, d)
	}

	d, err := NewExtractedData("c1", 1.0)
	require.NoError(t, err)
	assert.NoError(t, d.Validate())
	assert.NotNil(t, d.Quantities)
}

func TestExtractedDataValidateRejectsOutOfRangeScores(t *testing.T) {
	d, err := NewExtractedData("c1", 0.4)
	require.NoError(t, err)
	d.Entities = append(d.Entities, Entity{Type: "Wall", Confidence: 1.5})
	assert.Error(t, d.Validate())

	d = EmptyExtractedData("c1")
	d.ExtractionConfidence = 1.5
	assert.True(t, errors.Is(d.Validate(), ErrValidation))
}

func TestNewConflictInvariants(t *testing.T) {
	tests := []struct {
		name     string
		chunks   []string
		values   []interface{}
		severity float64
		wantErr  bool
	}{
		{"valid", []string{"a", "b"}, []interface{}{1.0, 2.0}, 0.5, false},
		{"single chunk", []string{"a"}, []interface{}{1.0}, 0.5, true},
		{"duplicate chunk ids", []string{"a", "a"}, []interface{}{1.0, 2.0}, 0.5, true},
		{"value count mismatch", []string{"a", "b"}, []interface{}{1.0}, 0.5, true},
		{"severity too high", []string{"a", "b"}, []interface{}{1.0, 2.0}, 1.5, true},
		{"severity negative", []string{"a", "b"}, []interface{}{1.0, 2.0}, -0.1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewConflict(ConflictQuantitativeMismatch, "test", tt.chunks, tt.values, tt.severity, nil, nil)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrValidation))
				assert.Nil(t, c)
				return
			}
			require.NoError(t, err)
			assert.Len(t, c.ConflictingChunks, 2)
		})
	}
}

func TestEvidenceValidation(t *testing.T) {
	_, err := NewEvidence("a", "x", 1.5, 0.5, nil)
	assert.Error(t, err)
	_, err = NewEvidence("a", "x", 0.5, -0.1, nil)
	assert.Error(t, err)
	ev, err := NewEvidence("a", "x", 0.5, 0.5, nil)
	require.NoError(t, err)
	assert.Equal(t, "a", ev.SourceChunkID)
}

func TestNewConflictResolution(t *testing.T) {
	c, err := NewConflict(ConflictQuantitativeMismatch, "volume", []string{"a", "b"}, []interface{}{1.0, 3.0}, 0.4, nil, nil)
	require.NoError(t, err)

	_, err = NewConflictResolution(c, StrategyStatisticalAnalysis, 2.0, 0.7, "  ")
	assert.Error(t, err, "empty reasoning")

	_, err = NewConflictResolution(c, StrategyStatisticalAnalysis, 2.0, 1.5, "mean")
	assert.Error(t, err)

	_, err = NewConflictResolution(nil, StrategyStatisticalAnalysis, 2.0, 0.7, "mean")
	assert.Error(t, err)

	r, err := NewConflictResolution(c, StrategyStatisticalAnalysis, 2.0, 0.7, "mean of 2 values")
	require.NoError(t, err)
	assert.Equal(t, c.Type, r.Conflict.Type)
}

func TestQualityMetricsValidation(t *testing.T) {
	for _, bad := range []float64{1.5, -0.1} {
		_, err := NewQualityMetrics(QualityMetrics{Confidence: bad})
		assert.Error(t, err)
		_, err = NewQualityMetrics(QualityMetrics{UncertaintyLevel: bad})
		assert.Error(t, err)
		_, err = NewQualityMetrics(QualityMetrics{ConflictResolutionRate: bad})
		assert.Error(t, err)
	}
}

func TestOverallQualityIsFixedWeightedSum(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 200; i++ {
		m, err := NewQualityMetrics(QualityMetrics{
			Confidence:        rng.Float64(),
			Completeness:      rng.Float64(),
			Consistency:       rng.Float64(),
			Reliability:       rng.Float64(),
			ExtractionQuality: rng.Float64(),
		})
		require.NoError(t, err)
		want := 0.25*m.Confidence + 0.20*m.Completeness + 0.20*m.Consistency + 0.20*m.Reliability + 0.15*m.ExtractionQuality
		assert.InDelta(t, want, m.OverallQuality(), 1e-12)
	}
}

func TestParseIntent(t *testing.T) {
	assert.Equal(t, IntentQuantity, ParseIntent(" Quantity "))
	assert.Equal(t, IntentCost, ParseIntent("cost"))
	assert.Equal(t, IntentUnknown, ParseIntent("weather"))
}

func TestExtractedDataCloneIsDeep(t *testing.T) {
	d, err := NewExtractedData("c1", 0.5)
	require.NoError(t, err)
	d.Entities = append(d.Entities, Entity{ID: "#1", Type: "Wall", Properties: map[string]interface{}{"material": "concrete"}})
	d.Properties["fireRating"] = "F90"
	d.SpatialContext["#1"] = SpatialEntry{EntityID: "#1", Coordinates: []float64{1, 2, 3}}

	c := d.Clone()
	c.Entities[0].Properties["material"] = "steel"
	c.Properties["fireRating"] = "F30"
	c.SpatialContext["#1"].Coordinates[0] = 9

	assert.Equal(t, "concrete", d.Entities[0].Properties["material"])
	assert.Equal(t, "F90", d.Properties["fireRating"])
	assert.Equal(t, 1.0, d.SpatialContext["#1"].Coordinates[0])
}
