package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestValidateRejectsBadParameters(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero ticks per year", func(c *Config) { c.TicksPerYear = 0 }},
		{"zero interest rate", func(c *Config) { c.InterestRate = 0 }},
		{"negative interest rate", func(c *Config) { c.InterestRate = -1 }},
		{"zero ltv", func(c *Config) { c.MaxLTV = 0 }},
		{"ltv above 100", func(c *Config) { c.MaxLTV = 120 }},
		{"zero mortgage years", func(c *Config) { c.MortgageYears = 0 }},
		{"zero grid width", func(c *Config) { c.GridWidth = 0 }},
		{"negative grid height", func(c *Config) { c.GridHeight = -1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestRateAndTermDerivations(t *testing.T) {
	cfg := Default()
	// 3% a year over 4 steps is 0.75% a step.
	assert.InDelta(t, 0.0075, cfg.RatePerStep(), 1e-12)
	assert.Equal(t, 100, cfg.MortgageSteps())
}

func TestLoadLayersFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"interest_rate: 5\nsteps: 40\nschedule:\n  - year: 2\n    max_ltv: 80\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5.0, cfg.InterestRate)
	assert.Equal(t, 40, cfg.Steps)
	assert.Equal(t, 90.0, cfg.MaxLTV) // untouched default
	require.Len(t, cfg.Schedule, 1)
	require.NotNil(t, cfg.Schedule[0].MaxLTV)
	assert.Equal(t, 80.0, *cfg.Schedule[0].MaxLTV)
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	t.Setenv("TERRACE_INTEREST_RATE", "6.5")
	t.Setenv("TERRACE_SEED", "99")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 6.5, cfg.InterestRate)
	assert.Equal(t, int64(99), cfg.Seed)
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("interest_rate: -2\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestApplyCopiesOnlySetFields(t *testing.T) {
	cfg := Default()
	rate := 7.0
	duty := true
	cfg.Apply(Override{Year: 3, InterestRate: &rate, StampDuty: &duty})

	assert.Equal(t, 7.0, cfg.InterestRate)
	assert.True(t, cfg.StampDuty)
	assert.Equal(t, 90.0, cfg.MaxLTV)
	assert.Equal(t, 4.0, cfg.EntryRate)
}
