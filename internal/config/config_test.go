package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/roomassign/pkg/rules"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "roomassign", cfg.App.Name)
	assert.Equal(t, 7012, cfg.App.Port)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
	assert.Equal(t, 30*time.Second, cfg.Engine.OptimizeTimeout)
	assert.True(t, cfg.IsDevelopment())
	assert.Contains(t, cfg.Database.DSN(), "dbname=roomassign")
	assert.Empty(t, cfg.API.APIKeys)
}

func TestLoad_APIKeys(t *testing.T) {
	t.Setenv("API_KEYS", "ops:secret:rules:write")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "ops:secret:rules:write", cfg.API.APIKeys)
}

func TestLoad_EngineOverrides(t *testing.T) {
	t.Setenv("ENGINE_GA_GENERATIONS", "250")
	t.Setenv("ENGINE_GA_POPULATION", "8")
	t.Setenv("ENGINE_GA_MUTATION_RATE", "0.5")
	t.Setenv("ENGINE_ALLOW_MIXED_GENDER", "true")
	t.Setenv("ENGINE_WORKERS", "2")

	cfg, err := Load()
	require.NoError(t, err)

	r := rules.DefaultConfig()
	cfg.Engine.Apply(r)

	assert.Equal(t, 250, r.Genetic.Generations)
	assert.Equal(t, 8, r.Genetic.PopulationSize)
	assert.Equal(t, 8, r.Genetic.EliteSize, "elite size is capped by population")
	assert.Equal(t, 0.5, r.Genetic.MutationRate)
	assert.Equal(t, 2, r.Genetic.Workers)
	assert.True(t, r.DefaultAllowMixedGender)
	assert.NoError(t, r.Validate())
}

func TestEngineConfig_ApplyDisabled(t *testing.T) {
	r := rules.DefaultConfig()
	c := EngineConfig{Enabled: false, GAGenerations: 5, AllowMixedGender: true}
	c.Apply(r)

	assert.Equal(t, rules.DefaultConfig().Genetic.Generations, r.Genetic.Generations)
	assert.False(t, r.DefaultAllowMixedGender)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"端口越界", "APP_PORT", "70000"},
		{"变异率越界", "ENGINE_GA_MUTATION_RATE", "1.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
