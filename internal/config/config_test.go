package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.InDelta(t, 1.0, cfg.Analytics.Weights.Sum(), 1e-9)
}

func TestValidateRejectsBadWeightSum(t *testing.T) {
	cfg := Default()
	cfg.Analytics.Weights = Weights{Cost: 0.5, Delivery: 0.3, Satisfaction: 0.15, Sustainability: 0.1}

	err := cfg.Validate()
	require.Error(t, err)

	var confErr *ConfigurationError
	require.True(t, errors.As(err, &confErr))
	assert.Equal(t, "weights", confErr.Param)
}

func TestValidateAcceptsAlternateWeightSplit(t *testing.T) {
	cfg := Default()
	cfg.Analytics.Weights = Weights{Cost: 0.5, Delivery: 0.3, Satisfaction: 0.15, Sustainability: 0.05}
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsNegativeRates(t *testing.T) {
	cfg := Default()
	cfg.Analytics.DelayPenaltyPerDay = -1

	var confErr *ConfigurationError
	require.ErrorAs(t, cfg.Validate(), &confErr)
	assert.Equal(t, "delay_penalty_per_day", confErr.Param)
}

func TestValidateRejectsOutOfRangeFractions(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		param  string
	}{
		{"zero shift", func(c *Config) { c.Analytics.VolumeShiftFraction = 0 }, "volume_shift_fraction"},
		{"shift above one", func(c *Config) { c.Analytics.VolumeShiftFraction = 1.5 }, "volume_shift_fraction"},
		{"trim half", func(c *Config) { c.Analytics.TrimFraction = 0.5 }, "trim_fraction"},
		{"negative trim", func(c *Config) { c.Analytics.TrimFraction = -0.1 }, "trim_fraction"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			var confErr *ConfigurationError
			require.ErrorAs(t, cfg.Validate(), &confErr)
			assert.Equal(t, tt.param, confErr.Param)
		})
	}
}

func TestLoadAppliesYAMLOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
analytics:
  weights:
    cost: 0.5
    delivery: 0.3
    satisfaction: 0.15
    sustainability: 0.05
  delay_penalty_per_day: 75
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.5, cfg.Analytics.Weights.Cost)
	assert.Equal(t, 75.0, cfg.Analytics.DelayPenaltyPerDay)
	// Untouched values keep their defaults.
	assert.Equal(t, 0.15, cfg.Analytics.VolumeShiftFraction)
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("analytics:\n  weights:\n    cost: 1.0\n    delivery: 0.5\n"), 0o644))

	_, err := Load(path)
	var confErr *ConfigurationError
	assert.ErrorAs(t, err, &confErr)
}
