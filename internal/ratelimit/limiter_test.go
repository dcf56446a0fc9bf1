package ratelimit

import (
	"context"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestMemory_PerKeyBurst(t *testing.T) {
	l := NewMemory(0.001, 2)
	ctx := context.Background()

	for range 2 {
		ok, err := l.Allow(ctx, "alice")
		require.NoError(t, err)
		require.True(t, ok)
	}
	ok, _ := l.Allow(ctx, "alice")
	require.False(t, ok)

	// Other keys have their own bucket
	ok, _ = l.Allow(ctx, "bob")
	require.True(t, ok)
	require.Equal(t, "memory", l.Name())
}

func TestRedis_FixedWindow(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	defer client.Close()

	now := time.Unix(1_700_000_000, 0)
	l := NewRedis(client, 1, 1, 2*time.Second).WithClock(func() time.Time { return now })
	ctx := context.Background()

	// 1 rps over a 2s window plus a burst of 1
	for i := range 3 {
		ok, err := l.Allow(ctx, "alice")
		require.NoError(t, err)
		require.True(t, ok, "request %d", i)
	}
	ok, err := l.Allow(ctx, "alice")
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = l.Allow(ctx, "bob")
	require.NoError(t, err)
	require.True(t, ok)

	// Next window
	now = now.Add(2 * time.Second)
	ok, err = l.Allow(ctx, "alice")
	require.NoError(t, err)
	require.True(t, ok)

	keys := m.Keys()
	require.NotEmpty(t, keys)
	require.True(t, m.TTL(keys[0]) > 0)
}

func TestRedis_Unavailable(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: m.Addr(), MaxRetries: -1})
	defer client.Close()
	m.Close()

	_, err = NewRedis(client, 1, 0, time.Second).Allow(context.Background(), "alice")
	require.Error(t, err)
}
