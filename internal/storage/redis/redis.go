package redis

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"bookmarker/internal/config"
	"bookmarker/internal/lib/ratelimit"
)

// Cache using redis keeps rate limit counters shared between API instances
type Cache struct {
	rdb *redis.Client
}

// NewCache creates new instance of redis client
func NewCache(conf *config.RedisConfig) *Cache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(conf.Host, strconv.Itoa(conf.Port)),
		Password: conf.Password,
		DB:       conf.DB,
	})

	return &Cache{rdb: rdb}
}

// NewCacheFromClient wraps an existing client
func NewCacheFromClient(rdb *redis.Client) *Cache {
	return &Cache{rdb: rdb}
}

func (c *Cache) Ping(ctx context.Context) error {
	const op = "storage.redis.Ping"

	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (c *Cache) Close() error {
	return c.rdb.Close()
}

// incrWindow increments the counter and starts its window on the first hit.
// Returns the count and the remaining window in milliseconds.
var incrWindow = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if n == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
	ttl = tonumber(ARGV[1])
end
return {n, ttl}
`)

// Allow counts a call in a fixed window and returns *ratelimit.LimitError once the rule is exhausted
func (c *Cache) Allow(ctx context.Context, rule ratelimit.Rule, identity string) error {
	const op = "storage.redis.Allow"

	res, err := incrWindow.Run(ctx, c.rdb, []string{ratelimit.Key(rule, identity)}, rule.Window.Milliseconds()).Int64Slice()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if len(res) != 2 {
		return fmt.Errorf("%s: unexpected script reply %v", op, res)
	}

	count, ttl := res[0], res[1]
	if count > int64(rule.Max) {
		return &ratelimit.LimitError{
			Operation:  rule.Operation,
			RetryAfter: time.Duration(ttl) * time.Millisecond,
		}
	}
	return nil
}
