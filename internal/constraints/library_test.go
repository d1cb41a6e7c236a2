package constraints

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/roomassign/pkg/assigner/constraint"
	"github.com/paiban/roomassign/pkg/rules"
)

func TestGetLibrary_HardConstraintsMatchValidator(t *testing.T) {
	lib := GetLibrary(nil)

	hard := map[string]bool{}
	for _, def := range lib {
		if def.Type == "hard" {
			hard[def.Name] = true
		}
	}

	for _, c := range constraint.NewDefaultValidator(nil).GetAll() {
		assert.True(t, hard[string(c.Type())], "missing hard constraint %s", c.Type())
	}
	assert.Len(t, hard, 3)
}

func TestGetLibrary_DefaultsFollowConfig(t *testing.T) {
	cfg := rules.DefaultConfig()
	cfg.Genetic.MutationRate = 0.55
	cfg.Occupancy.BalanceMaxMoves = 7

	def, ok := GetByName(cfg, "genetic_optimizer")
	require.True(t, ok)
	assert.Equal(t, "0.55", paramDefault(def, "genetic.mutation_rate"))

	def, ok = GetByName(cfg, "hotel_balance")
	require.True(t, ok)
	assert.Equal(t, "7", paramDefault(def, "occupancy.balance_max_moves"))

	_, ok = GetByName(cfg, "max_hours_per_day")
	assert.False(t, ok)
}

func TestGetByCategory(t *testing.T) {
	defs := GetByCategory(nil, "候选评分")
	assert.NotEmpty(t, defs)
	for _, def := range defs {
		assert.Equal(t, "soft", def.Type)
	}
	assert.Empty(t, GetByCategory(nil, "不存在"))
}

func paramDefault(def ConstraintDefinition, name string) string {
	for _, p := range def.Params {
		if p.Name == name {
			return p.Default
		}
	}
	return ""
}
