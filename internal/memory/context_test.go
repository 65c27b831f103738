package memory

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/ChamsBouzaiene/planloop/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteContextStore(t *testing.T) {
	s := openTestStore(t, "")
	cs := s.ContextStore()
	ctx := context.Background()

	_, ok, err := cs.Get(ctx, "current_plan")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cs.Put(ctx, "current_plan", `["a"]`))
	require.NoError(t, cs.Put(ctx, "current_plan", `["a","b"]`))

	v, ok, err := cs.Get(ctx, "current_plan")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `["a","b"]`, v)
}

func TestNewContextStore_Backends(t *testing.T) {
	s := openTestStore(t, "")
	ctx := context.Background()

	cs, closeFn, err := NewContextStore(ctx, config.ContextConfig{Backend: "sqlite"}, s)
	require.NoError(t, err)
	assert.IsType(t, &SQLiteContextStore{}, cs)
	assert.NoError(t, closeFn())

	_, _, err = NewContextStore(ctx, config.ContextConfig{Backend: "etcd"}, s)
	assert.ErrorContains(t, err, "unknown context backend")
}

func redisAddr(t *testing.T) string {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set, skipping redis integration test")
	}
	return addr
}

func TestRedisContextStore(t *testing.T) {
	addr := redisAddr(t)
	ctx := context.Background()

	rs, err := NewRedisContextStore(ctx, addr, 0, time.Minute)
	if err != nil {
		t.Skipf("redis not reachable at %s: %v", addr, err)
	}
	defer rs.Close()

	key := "test_" + time.Now().Format("150405.000000")
	require.NoError(t, rs.Put(ctx, key, "value"))

	v, ok, err := rs.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "value", v)

	ttl, err := rs.client.TTL(ctx, redisKeyPrefix+key).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	_, ok, err = rs.Get(ctx, key+"_missing")
	require.NoError(t, err)
	assert.False(t, ok)
}
