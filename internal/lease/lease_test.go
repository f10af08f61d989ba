package lease

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/goran-ethernal/MarketSync/internal/common"
	"github.com/goran-ethernal/MarketSync/internal/logger"
	"github.com/goran-ethernal/MarketSync/pkg/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const testKey = "marketsync:tick"

func newReplica(t *testing.T, mr *miniredis.Miniredis, ttl time.Duration, log *logger.Logger) *Redis {
	t.Helper()

	cfg := &config.LeaseConfig{RedisURL: "redis://" + mr.Addr(), Key: testKey, TTL: common.NewDuration(ttl)}

	l, err := NewRedis(t.Context(), cfg, log)
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })

	return l
}

func TestNewRedis_InvalidURL(t *testing.T) {
	_, err := NewRedis(t.Context(), &config.LeaseConfig{RedisURL: "http://localhost:6379"}, logger.NewNopLogger())
	require.ErrorContains(t, err, "failed to parse redis URL")
}

func TestNewRedis_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedis(t.Context(), &config.LeaseConfig{RedisURL: "redis://" + addr}, logger.NewNopLogger())
	require.ErrorContains(t, err, "failed to connect to redis")
}

func TestNewRedis_TokensDiffer(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer rdb.Close()

	a := newRedis(rdb, "k", time.Second, logger.NewNopLogger())
	b := newRedis(rdb, "k", time.Second, logger.NewNopLogger())
	require.NotEqual(t, a.token, b.token)
}

func TestRedis_ExclusiveAcquire(t *testing.T) {
	mr := miniredis.RunT(t)

	first := newReplica(t, mr, time.Minute, logger.NewNopLogger())
	second := newReplica(t, mr, time.Minute, logger.NewNopLogger())

	release, ok, err := first.TryAcquire(t.Context())
	require.NoError(t, err)
	require.True(t, ok)

	got, err := mr.Get(testKey)
	require.NoError(t, err)
	require.Equal(t, first.token, got)
	require.Equal(t, time.Minute, mr.TTL(testKey))

	_, ok, err = second.TryAcquire(t.Context())
	require.NoError(t, err)
	require.False(t, ok)

	// The holder cannot take its own lease twice either.
	_, ok, err = first.TryAcquire(t.Context())
	require.NoError(t, err)
	require.False(t, ok)

	release()
	require.False(t, mr.Exists(testKey))

	release, ok, err = second.TryAcquire(t.Context())
	require.NoError(t, err)
	require.True(t, ok)

	got, err = mr.Get(testKey)
	require.NoError(t, err)
	require.Equal(t, second.token, got)

	release()
	require.False(t, mr.Exists(testKey))
}

func TestRedis_ExpiredReleaseKeepsNewHolder(t *testing.T) {
	mr := miniredis.RunT(t)

	core, logs := observer.New(zapcore.WarnLevel)
	slow := newReplica(t, mr, 10*time.Second, &logger.Logger{SugaredLogger: zap.New(core).Sugar()})
	fast := newReplica(t, mr, 10*time.Second, logger.NewNopLogger())

	releaseSlow, ok, err := slow.TryAcquire(t.Context())
	require.NoError(t, err)
	require.True(t, ok)

	// The slow tick outlives its TTL and another replica takes over.
	mr.FastForward(11 * time.Second)
	require.False(t, mr.Exists(testKey))

	releaseFast, ok, err := fast.TryAcquire(t.Context())
	require.NoError(t, err)
	require.True(t, ok)

	releaseSlow()

	got, err := mr.Get(testKey)
	require.NoError(t, err)
	require.Equal(t, fast.token, got)
	require.Equal(t, 1, logs.FilterMessage("tick lease expired before release").Len())

	_, ok, err = slow.TryAcquire(t.Context())
	require.NoError(t, err)
	require.False(t, ok)

	releaseFast()
	require.False(t, mr.Exists(testKey))
}

func TestRedis_AcquireFailsWhenServerGone(t *testing.T) {
	mr := miniredis.RunT(t)
	l := newReplica(t, mr, time.Minute, logger.NewNopLogger())

	mr.Close()

	release, ok, err := l.TryAcquire(t.Context())
	require.ErrorContains(t, err, "setnx "+testKey+" failed")
	require.False(t, ok)
	require.Nil(t, release)
}
