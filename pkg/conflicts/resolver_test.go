package conflicts

import (
	"testing"

	"github.com/athapong/bim-synthesis/pkg/config"
	"github.com/athapong/bim-synthesis/pkg/model"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func conflict(t *testing.T, kind model.ConflictType, values ...interface{}) model.Conflict {
	chunks := make([]string, len(values))
	evidence := make([]model.Evidence, len(values))
	for i := range values {
		chunks[i] = string(rune('a' + i))
		evidence[i] = model.Evidence{SourceChunkID: chunks[i], Confidence: 0.5 + 0.1*float64(i), QualityScore: 1}
	}
	c, err := model.NewConflict(kind, "test", chunks, values, 0.5, evidence, map[string]interface{}{"quantity": "volume"})
	require.NoError(t, err)
	return *c
}

func TestResolveMean(t *testing.T) {
	r := NewResolver(config.Default())
	c := conflict(t, model.ConflictQuantitativeMismatch, 10.0, 10.0, 25.0)
	out := r.Resolve([]model.Conflict{c}, nil)

	require.Len(t, out, 1)
	assert.Equal(t, 15.0, out[0].ResolvedValue)
	assert.Equal(t, model.StrategyStatisticalAnalysis, out[0].Strategy)
	assert.Equal(t, StatisticalConfidence, out[0].Confidence)
	assert.Contains(t, out[0].Reasoning, "3")
	assert.Contains(t, out[0].Reasoning, "15")
	assert.Equal(t, c, out[0].Conflict)
}

func TestOtherTypesUnresolvedByDefault(t *testing.T) {
	r := NewResolver(config.Default())
	out := r.Resolve([]model.Conflict{
		conflict(t, model.ConflictEntityMismatch, "Wall", "Column"),
		conflict(t, model.ConflictMissingInformation, 1, 5),
	}, nil)
	assert.Empty(t, out)
}

func TestResolutionDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.EnableConflictResolution = false
	out := NewResolver(cfg).Resolve([]model.Conflict{conflict(t, model.ConflictQuantitativeMismatch, 1.0, 2.0)}, nil)
	assert.Empty(t, out)
}

func TestComprehensiveStrategies(t *testing.T) {
	cfg := config.Default()
	cfg.ValidationLevel = model.ValidationComprehensive
	r := NewResolver(cfg)

	out := r.Resolve([]model.Conflict{
		conflict(t, model.ConflictPropertyContradiction, "F90", "F90", "F30"),
		conflict(t, model.ConflictEntityMismatch, "Wall", "Column"),
		conflict(t, model.ConflictQualitativeContradiction, "present", "absent"),
	}, nil)

	require.Len(t, out, 2)
	assert.Equal(t, model.StrategyMajorityRule, out[0].Strategy)
	assert.Equal(t, "F90", out[0].ResolvedValue)
	assert.InDelta(t, 2.0/3, out[0].Confidence, 1e-9)

	assert.Equal(t, model.StrategyConfidenceWeighted, out[1].Strategy)
	assert.Equal(t, "Column", out[1].ResolvedValue)
}

func TestRegisterOverridesAndContainsFailures(t *testing.T) {
	r := NewResolver(config.Default())
	r.Register(model.ConflictMissingInformation, func(c model.Conflict, _ []*model.ExtractedData) (*model.ConflictResolution, error) {
		return model.NewConflictResolution(&c, model.StrategyConservative, c.ConflictingValues[0], 0.4, "kept the smaller count")
	})
	r.Register(model.ConflictEntityMismatch, func(model.Conflict, []*model.ExtractedData) (*model.ConflictResolution, error) {
		return nil, errors.New("cannot decide")
	})
	r.Register(model.ConflictRelationshipConflict, func(model.Conflict, []*model.ExtractedData) (*model.ConflictResolution, error) {
		panic("boom")
	})

	out := r.Resolve([]model.Conflict{
		conflict(t, model.ConflictMissingInformation, 1, 5),
		conflict(t, model.ConflictEntityMismatch, "Wall", "Column"),
		conflict(t, model.ConflictRelationshipConflict, "contains", "adjacent_to"),
	}, nil)
	require.Len(t, out, 1)
	assert.Equal(t, model.StrategyConservative, out[0].Strategy)
}

func TestResolveMeanRejectsText(t *testing.T) {
	_, err := ResolveMean(conflict(t, model.ConflictQuantitativeMismatch, "ten", "eleven"), nil)
	assert.Error(t, err)
}
