package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketapi/internal/config"
)

type entry struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

func newTestCache(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisWithClient(client), mr
}

func TestRedis_SetGet(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", entry{Name: "Acme", Score: 7}, time.Minute))

	var got entry
	ok, err := c.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, entry{Name: "Acme", Score: 7}, got)
}

func TestRedis_Miss(t *testing.T) {
	c, _ := newTestCache(t)

	var got entry
	ok, err := c.Get(context.Background(), "absent", &got)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestRedis_Expiry(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", entry{Name: "Acme"}, time.Second))
	mr.FastForward(2 * time.Second)

	var got entry
	ok, err := c.Get(ctx, "k", &got)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestRedis_Invalidate(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", entry{Name: "Acme"}, time.Minute))
	assert.True(t, mr.Exists("marketapi:k"))

	require.NoError(t, c.Invalidate(ctx, "k"))
	assert.False(t, mr.Exists("marketapi:k"))
}

func TestRedis_CorruptValue(t *testing.T) {
	c, mr := newTestCache(t)
	require.NoError(t, mr.Set("marketapi:k", "{broken"))

	var got entry
	ok, err := c.Get(context.Background(), "k", &got)
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestRedis_ServerDown(t *testing.T) {
	c, mr := newTestCache(t)
	mr.Close()

	assert.Error(t, c.Ping(context.Background()))
}

func TestNewRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	c, err := NewRedis(context.Background(), config.RedisConfig{Addr: mr.Addr(), DialTimeout: time.Second, Timeout: time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	assert.NoError(t, c.Ping(context.Background()))
}

func TestNoop(t *testing.T) {
	var c Cache = Noop{}
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", entry{}, time.Minute))
	ok, err := c.Get(ctx, "k", &entry{})
	assert.NoError(t, err)
	assert.False(t, ok)
}
