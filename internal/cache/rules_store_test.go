package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/roomassign/pkg/errors"
	"github.com/paiban/roomassign/pkg/rules"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *RulesStore) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return mr, NewRulesStore(client, "", nil)
}

func TestRulesStore_GetDefaults(t *testing.T) {
	_, store := setupTestRedis(t)

	cfg, err := store.Get(context.Background())

	require.NoError(t, err)
	assert.Equal(t, rules.DefaultConfig().Genetic.Generations, cfg.Genetic.Generations)
	assert.Equal(t, 4, cfg.Priority("vip"))
}

func TestRulesStore_PutAndGet(t *testing.T) {
	mr, store := setupTestRedis(t)
	ctx := context.Background()

	cfg := rules.DefaultConfig()
	cfg.Genetic.Generations = 42
	cfg.DefaultAllowMixedGender = true
	require.NoError(t, store.Put(ctx, cfg))

	assert.True(t, mr.Exists(DefaultRulesKey))

	got, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 42, got.Genetic.Generations)
	assert.True(t, got.DefaultAllowMixedGender)
	assert.Equal(t, cfg.Priorities, got.Priorities)
}

func TestRulesStore_PutInvalid(t *testing.T) {
	mr, store := setupTestRedis(t)

	cfg := rules.DefaultConfig()
	cfg.Genetic.MutationRate = 2

	err := store.Put(context.Background(), cfg)

	assert.True(t, errors.Is(err, errors.CodeValidationFail))
	assert.False(t, mr.Exists(DefaultRulesKey))
}

func TestRulesStore_Reset(t *testing.T) {
	_, store := setupTestRedis(t)
	ctx := context.Background()

	cfg := rules.DefaultConfig()
	cfg.SuggestionLimit = 3
	require.NoError(t, store.Put(ctx, cfg))
	require.NoError(t, store.Reset(ctx))

	got, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, got.SuggestionLimit)
}

func TestRulesStore_CorruptValue(t *testing.T) {
	mr, store := setupTestRedis(t)
	require.NoError(t, mr.Set(DefaultRulesKey, "{not json"))

	_, err := store.Get(context.Background())

	assert.True(t, errors.Is(err, errors.CodeCacheError))
}

func TestRulesStore_ServerDown(t *testing.T) {
	mr, store := setupTestRedis(t)
	mr.Close()

	_, err := store.Get(context.Background())

	assert.True(t, errors.Is(err, errors.CodeCacheError))
}
