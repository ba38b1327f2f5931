package cache_test

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vytor/fairplay/internal/cache"
	"github.com/vytor/fairplay/internal/models"
)

var th = models.Thresholds{ForcedEval: 3, CriticalSpread: 2, DecisiveEval: 2, LongThinkSeconds: 5}

func TestKey(t *testing.T) {
	k := cache.Key("1. e4 e5 *", th, 5, 18)
	assert.Len(t, k, 64)
	assert.Equal(t, k, cache.Key("1. e4 e5 *", th, 5, 18))

	other := th
	other.ForcedEval = 2.5
	assert.NotEqual(t, k, cache.Key("1. e4 e5 *", other, 5, 18))
	assert.NotEqual(t, k, cache.Key("1. e4 e5 *", th, 4, 18))
	assert.NotEqual(t, k, cache.Key("1. e4 e5 *", th, 5, 20))
	assert.NotEqual(t, k, cache.Key("1. d4 d5 *", th, 5, 18))
}

func TestLRU(t *testing.T) {
	ctx := context.Background()
	c, err := cache.NewLRU(2, 0)
	require.NoError(t, err)
	defer c.Close()

	_, ok, err := c.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "a", []byte("1")))
	require.NoError(t, c.Set(ctx, "b", []byte("2")))
	v, ok, err := c.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("1"), v)

	require.NoError(t, c.Set(ctx, "c", []byte("3")))
	_, ok, _ = c.Get(ctx, "b")
	assert.False(t, ok, "least recently used entry is evicted")
	assert.Equal(t, 2, c.Len())
}

func TestLRU_TTL(t *testing.T) {
	ctx := context.Background()
	c, err := cache.NewLRU(4, 10*time.Millisecond)
	require.NoError(t, err)

	require.NoError(t, c.Set(ctx, "a", []byte("1")))
	assert.Eventually(t, func() bool {
		_, ok, _ := c.Get(ctx, "a")
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestNewLRU_InvalidSize(t *testing.T) {
	_, err := cache.NewLRU(0, 0)
	assert.Error(t, err)
}

func TestRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	c, err := cache.NewRedis(ctx, "redis://"+mr.Addr()+"/0", time.Hour)
	require.NoError(t, err)
	defer c.Close()

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "k", []byte(`{"id":"x"}`)))
	v, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `{"id":"x"}`, string(v))

	assert.True(t, mr.Exists("fairplay:analysis:k"))
	mr.FastForward(2 * time.Hour)
	_, ok, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewRedis_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := cache.NewRedis(ctx, "redis://"+addr+"/0", time.Hour)
	assert.Error(t, err)
}

func TestNewRedis_BadURL(t *testing.T) {
	_, err := cache.NewRedis(context.Background(), "not-a-url", time.Hour)
	assert.Error(t, err)
}

func TestNew_SelectsBackend(t *testing.T) {
	ctx := context.Background()

	c, err := cache.New(ctx, cache.Options{Size: 8})
	require.NoError(t, err)
	_, isLRU := c.(*cache.LRU)
	assert.True(t, isLRU)

	mr := miniredis.RunT(t)
	c, err = cache.New(ctx, cache.Options{RedisURL: "redis://" + mr.Addr(), TTL: time.Minute})
	require.NoError(t, err)
	defer c.Close()
	_, isRedis := c.(*cache.Redis)
	assert.True(t, isRedis)
}
