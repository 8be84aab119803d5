package cache

import (
	"context"
	"testing"
	"time"

	"skyrating/internal/config"
	"skyrating/internal/domain"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledStoreIsNoop(t *testing.T) {
	store := NewMultiplierStore(&config.Config{}, zerolog.Nop())
	assert.False(t, store.Enabled())

	ctx := context.Background()
	require.NoError(t, store.Publish(ctx, 1, []domain.KillMetric{{KillStr: "x", Multiplier: 2}}))

	metrics, ok, err := store.Load(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, metrics)
	assert.NoError(t, store.Close())
}

func TestUnreachableRedisReturnsError(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	store := NewMultiplierStoreWithClient(rdb, zerolog.Nop())
	t.Cleanup(func() { store.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := store.Publish(ctx, 1, nil)
	assert.Error(t, err)

	_, ok, err := store.Load(ctx, 1)
	assert.Error(t, err)
	assert.False(t, ok)
}
