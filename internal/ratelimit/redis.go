package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a fixed-window counter shared by every server using the same Redis.
// Each key may pass floor(rps*window)+burst events per window.
type Redis struct {
	client  redis.Cmdable
	allowed int64
	window  time.Duration
	prefix  string
	now     func() time.Time
}

// NewRedis creates a Redis backed limiter.
func NewRedis(client redis.Cmdable, rps float64, burst int, window time.Duration) *Redis {
	if window < time.Second {
		window = time.Second
	}
	return &Redis{
		client:  client,
		allowed: int64(rps*window.Seconds()) + int64(burst),
		window:  window,
		prefix:  "recordbase:rl:",
		now:     time.Now,
	}
}

// WithClock replaces the time source used to pick the window.
func (r *Redis) WithClock(now func() time.Time) *Redis {
	r.now = now
	return r
}

func (r *Redis) Name() string { return "redis" }

// Allow increments the counter of the current window for key.
func (r *Redis) Allow(ctx context.Context, key string) (bool, error) {
	seconds := int64(r.window / time.Second)
	bucket := r.now().Unix() / seconds
	redisKey := fmt.Sprintf("%s%s:%d", r.prefix, key, bucket)

	cnt, err := r.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, fmt.Errorf("rate limit incr: %w", err)
	}
	if cnt == 1 {
		if err := r.client.Expire(ctx, redisKey, r.window+time.Second).Err(); err != nil {
			return false, fmt.Errorf("rate limit expire: %w", err)
		}
	}
	return cnt <= r.allowed, nil
}
