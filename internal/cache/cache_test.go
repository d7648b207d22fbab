package cache_test

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/fashionvista/fashionvista/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupMiniRedis returns a RedisCache backed by an in-process server.
func setupMiniRedis(t *testing.T) (*cache.RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rc, err := cache.NewRedisCache("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = rc.Close() })
	return rc, mr
}

// --- Ping ---

func TestPing(t *testing.T) {
	rc, _ := setupMiniRedis(t)
	assert.NoError(t, rc.Ping(context.Background()))
}

func TestPing_ServerGone(t *testing.T) {
	rc, mr := setupMiniRedis(t)
	mr.Close()
	assert.Error(t, rc.Ping(context.Background()))
}

func TestNewRedisCache_InvalidURL(t *testing.T) {
	_, err := cache.NewRedisCache("not-a-url")
	assert.Error(t, err)
}

// --- Set / Get / Delete ---

func TestSetGet_Roundtrip(t *testing.T) {
	rc, _ := setupMiniRedis(t)
	ctx := context.Background()

	require.NoError(t, rc.Set(ctx, "k", []byte("token-value"), time.Minute))
	val, found, err := rc.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("token-value"), val)
}

func TestGet_NotFound(t *testing.T) {
	rc, _ := setupMiniRedis(t)
	val, found, err := rc.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, val)
}

func TestSet_TTLExpiry(t *testing.T) {
	rc, mr := setupMiniRedis(t)
	ctx := context.Background()

	require.NoError(t, rc.Set(ctx, "short", []byte("v"), 2*time.Second))
	mr.FastForward(3 * time.Second)

	_, found, err := rc.Get(ctx, "short")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDelete(t *testing.T) {
	rc, _ := setupMiniRedis(t)
	ctx := context.Background()

	require.NoError(t, rc.Set(ctx, "k", []byte("v"), time.Minute))
	require.NoError(t, rc.Delete(ctx, "k"))
	_, found, err := rc.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)

	assert.NoError(t, rc.Delete(ctx, "never-set"))
}

// --- TTL ---

func TestTTL(t *testing.T) {
	rc, _ := setupMiniRedis(t)
	ctx := context.Background()

	require.NoError(t, rc.Set(ctx, "k", []byte("v"), 90*time.Second))
	ttl, found, err := rc.TTL(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.InDelta(t, (90 * time.Second).Seconds(), ttl.Seconds(), 1)

	_, found, err = rc.TTL(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)
}

// --- IncrWithExpiry ---

func TestIncrWithExpiry(t *testing.T) {
	rc, mr := setupMiniRedis(t)
	ctx := context.Background()
	key := cache.RateLimitKey("sess-1")

	for want := int64(1); want <= 3; want++ {
		n, err := rc.IncrWithExpiry(ctx, key, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}
	assert.True(t, mr.TTL(key) > 0)
}

func TestIncrWithExpiry_WindowResets(t *testing.T) {
	rc, mr := setupMiniRedis(t)
	ctx := context.Background()
	key := cache.RateLimitKey("sess-2")

	_, err := rc.IncrWithExpiry(ctx, key, time.Minute)
	require.NoError(t, err)
	mr.FastForward(30 * time.Second)
	_, err = rc.IncrWithExpiry(ctx, key, time.Minute)
	require.NoError(t, err)

	// The window is anchored at the first hit.
	mr.FastForward(31 * time.Second)
	n, err := rc.IncrWithExpiry(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

// --- keys ---

func TestSessionTokenKey(t *testing.T) {
	assert.Equal(t, "session:abc:jwt", cache.SessionTokenKey("abc"))
}

func TestRateLimitKey(t *testing.T) {
	assert.Equal(t, "ratelimit:fv_12345", cache.RateLimitKey("fv_12345"))
}

func TestKeyBuilders_NonColliding(t *testing.T) {
	assert.NotEqual(t, cache.SessionTokenKey("x"), cache.RateLimitKey("x"))
}

// --- against a real server ---

func TestRedisContainer_Roundtrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, container.Terminate(ctx)) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	rc, err := cache.NewRedisCache("redis://" + host + ":" + port.Port())
	require.NoError(t, err)
	t.Cleanup(func() { _ = rc.Close() })

	require.NoError(t, rc.Ping(ctx))
	n, err := rc.IncrWithExpiry(ctx, cache.RateLimitKey("it"), time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	ttl, found, err := rc.TTL(ctx, cache.RateLimitKey("it"))
	require.NoError(t, err)
	assert.True(t, found)
	assert.Greater(t, ttl, time.Duration(0))
}
