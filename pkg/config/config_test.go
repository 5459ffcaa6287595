package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/athapong/bim-synthesis/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 0.05, cfg.Tolerances.QuantityRelativeTolerance)
	assert.Equal(t, 0.1, cfg.Tolerances.QuantityAbsoluteTolerance)
	assert.Equal(t, 0.3, cfg.Tolerances.ConfidenceThreshold)
	assert.Equal(t, 0.6, cfg.Tolerances.MajorityThreshold)
	assert.Equal(t, 2.0, cfg.Tolerances.StatisticalOutlierThreshold)
	assert.Equal(t, model.ValidationStandard, cfg.ValidationLevel)
	assert.True(t, cfg.EnableConflictResolution)
	require.NoError(t, cfg.Validate())
}

func TestLoadYAMLWithEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "synth.yaml")
	content := `
tolerance_thresholds:
  quantity_relative_tolerance: 0.1
  confidence_threshold: 0.5
validation_level: strict
enable_conflict_resolution: false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("SYNTH_MAJORITY_THRESHOLD", "0.75")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.1, cfg.Tolerances.QuantityRelativeTolerance)
	assert.Equal(t, 0.5, cfg.Tolerances.ConfidenceThreshold)
	assert.Equal(t, 0.75, cfg.Tolerances.MajorityThreshold)
	assert.Equal(t, 2.0, cfg.Tolerances.StatisticalOutlierThreshold, "unset keys keep defaults")
	assert.Equal(t, model.ValidationStrict, cfg.ValidationLevel)
	assert.False(t, cfg.EnableConflictResolution)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("SYNTH_CONFIDENCE_THRESHOLD", "1.5")
	_, err := Load("")
	assert.Error(t, err)
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("SYNTH_BASE_CURRENCY=usd\n"), 0o644))
	t.Setenv("SYNTH_BASE_CURRENCY", "")
	os.Unsetenv("SYNTH_BASE_CURRENCY")

	require.NoError(t, LoadEnvFile(path))
	require.NoError(t, LoadEnvFile(filepath.Join(dir, "missing.env")))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "USD", cfg.BaseCurrency)
}

func TestRate(t *testing.T) {
	cfg := Default()
	r, ok := cfg.Rate("eur")
	assert.True(t, ok)
	assert.Equal(t, 1.0, r)

	r, ok = cfg.Rate("USD")
	assert.True(t, ok)
	assert.InDelta(t, 0.92, r, 1e-9)

	_, ok = cfg.Rate("XYZ")
	assert.False(t, ok)
}
