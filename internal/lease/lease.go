package lease

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/goran-ethernal/MarketSync/internal/common"
	"github.com/goran-ethernal/MarketSync/internal/logger"
	"github.com/goran-ethernal/MarketSync/pkg/config"
	"github.com/redis/go-redis/v9"
)

const (
	pingTimeout    = 5 * time.Second
	releaseTimeout = 5 * time.Second
)

// releaseScript deletes the key only while it still holds our token, so an
// expired lease taken over by another replica is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a tick lease stored under a single Redis key with a TTL.
type Redis struct {
	rdb   redis.UniversalClient
	key   string
	ttl   time.Duration
	token string
	log   *logger.Logger
}

// NewRedis connects to the configured Redis server and returns a lease bound to cfg.Key.
func NewRedis(ctx context.Context, cfg *config.LeaseConfig, log *logger.Logger) (*Redis, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return newRedis(rdb, cfg.Key, cfg.TTL.Duration, log), nil
}

func newRedis(rdb redis.UniversalClient, key string, ttl time.Duration, log *logger.Logger) *Redis {
	return &Redis{
		rdb:   rdb,
		key:   key,
		ttl:   ttl,
		token: rand.Text(),
		log:   log.WithComponent(common.ComponentLease),
	}
}

// TryAcquire takes the lease if nobody holds it. ok is false when another
// holder owns it.
func (l *Redis) TryAcquire(ctx context.Context) (func(), bool, error) {
	ok, err := l.rdb.SetNX(ctx, l.key, l.token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("setnx %s failed: %w", l.key, err)
	}
	if !ok {
		return nil, false, nil
	}

	return l.release, true, nil
}

func (l *Redis) release() {
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()

	n, err := releaseScript.Run(ctx, l.rdb, []string{l.key}, l.token).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		l.log.Warnw("failed to release tick lease, it will expire", "key", l.key, "ttl", l.ttl, "error", err)
		return
	}
	if n == 0 {
		l.log.Warnw("tick lease expired before release", "key", l.key, "ttl", l.ttl)
	}
}

// Close closes the Redis connection.
func (l *Redis) Close() error {
	return l.rdb.Close()
}
