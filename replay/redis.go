package replay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultTTL is how long an accepted request id is remembered when no TTL
// is configured.
const DefaultTTL = 15 * time.Minute

// ErrEmptyRequestID is returned when Seen is called without a request id.
var ErrEmptyRequestID = errors.New("replay: empty request id")

// RedisClient is the subset of the go-redis client used by RedisGuard.
type RedisClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

// RedisGuard remembers accepted request ids in Redis. It is shared by all
// replicas of a service pointing at the same Redis.
type RedisGuard struct {
	redis  RedisClient
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisGuard returns a guard storing ids under "<prefix>:replay:<id>"
// for ttl. A zero ttl uses DefaultTTL; a nil logger logs nothing.
func NewRedisGuard(rdb RedisClient, prefix string, ttl time.Duration, logger *zap.Logger) *RedisGuard {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &RedisGuard{
		redis:  rdb,
		prefix: prefix,
		ttl:    ttl,
		logger: logger,
	}
}

// Seen atomically records requestID and reports whether it was already
// recorded.
func (g *RedisGuard) Seen(ctx context.Context, requestID string) (bool, error) {
	if requestID == "" {
		return false, ErrEmptyRequestID
	}

	stored, err := g.redis.SetNX(ctx, g.key(requestID), "1", g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("replay check error: %w", err)
	}

	if !stored {
		g.logger.Warn("request id replayed", zap.String("request_id", requestID))
		return true, nil
	}

	return false, nil
}

func (g *RedisGuard) key(requestID string) string {
	if g.prefix == "" {
		return "replay:" + requestID
	}

	return g.prefix + ":replay:" + requestID
}
