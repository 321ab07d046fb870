package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/marcelsud/webhook-relay/ratelimit"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "ratelimit:"

// hitScript implements a sliding window over a sorted set of hit timestamps (ms).
// Returns {allowed, remaining, retry_after_ms}.
var hitScript = redis.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local window = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local member = ARGV[4]

	-- Remove old entries
	redis.call('ZREMRANGEBYSCORE', key, 0, now - window)

	local current = redis.call('ZCARD', key)
	if current < limit then
		redis.call('ZADD', key, now, member)
		redis.call('PEXPIRE', key, window)
		return {1, limit - current - 1, 0}
	end

	local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
	return {0, 0, tonumber(oldest[2]) + window - now}
`)

// Store keeps rate-limit state in Redis so every replica shares the same windows
type Store struct {
	client *redis.Client
	now    func() time.Time
}

func NewStore(client *redis.Client) *Store {
	return &Store{client: client, now: time.Now}
}

// NewStoreWithClock is used by tests to control time
func NewStoreWithClock(client *redis.Client, now func() time.Time) *Store {
	return &Store{client: client, now: now}
}

func (s *Store) Hit(ctx context.Context, key string, rule ratelimit.Rule) (ratelimit.Decision, error) {
	now := s.now().UnixMilli()
	res, err := hitScript.Run(ctx, s.client, []string{keyPrefix + key},
		now, rule.Window.Milliseconds(), rule.Limit, uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return ratelimit.Decision{}, fmt.Errorf("running rate limit script: %w", err)
	}
	if len(res) != 3 {
		return ratelimit.Decision{}, fmt.Errorf("running rate limit script: unexpected reply %v", res)
	}

	return ratelimit.Decision{
		Allowed:    res[0] == 1,
		Limit:      rule.Limit,
		Remaining:  int(res[1]),
		RetryAfter: time.Duration(res[2]) * time.Millisecond,
	}, nil
}
