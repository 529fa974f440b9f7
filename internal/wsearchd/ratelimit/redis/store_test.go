package redis

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wrale/wrale-search/internal/wsearchd/testutil"
)

func TestStore_Increment(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	store := NewStore(client)
	ctx := context.Background()
	key := "test:" + uuid.NewString()
	t.Cleanup(func() { client.Del(context.Background(), KeyPrefix+key) })

	count, reset, err := store.Increment(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.WithinDuration(t, time.Now().Add(time.Minute), reset, 5*time.Second)

	count, _, err = store.Increment(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	ttl, err := client.PTTL(ctx, KeyPrefix+key).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Minute)
}

func TestStore_WindowExpires(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	store := NewStore(client)
	ctx := context.Background()
	key := "test:" + uuid.NewString()

	_, _, err := store.Increment(ctx, key, 50*time.Millisecond)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		n, err := client.Exists(ctx, KeyPrefix+key).Result()
		return err == nil && n == 0
	}, 2*time.Second, 20*time.Millisecond)

	count, _, err := store.Increment(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	client.Del(ctx, KeyPrefix+key)
}
