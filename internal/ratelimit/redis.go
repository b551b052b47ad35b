package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "ledger:ratelimit:"

// Redis is a fixed one-second window shared by every API instance. A window
// admits rate+burst requests.
type Redis struct {
	Client *redis.Client
	limit  int64
	window time.Duration
	now    func() time.Time
}

func NewRedis(opt *redis.Options, rate float64, burst int) *Redis {
	if rate <= 0 {
		rate = DefaultRate
	}
	if burst < 0 {
		burst = 0
	}
	return &Redis{
		Client: redis.NewClient(opt),
		limit:  int64(rate) + int64(burst),
		window: time.Second,
		now:    time.Now,
	}
}

func (r *Redis) Allow(ctx context.Context, key string) (bool, error) {
	bucket := r.now().Unix() / int64(r.window.Seconds())
	k := fmt.Sprintf("%s%s:%d", redisKeyPrefix, key, bucket)
	n, err := r.Client.Incr(ctx, k).Result()
	if err != nil {
		return false, err
	}
	if n == 1 {
		if err := r.Client.Expire(ctx, k, 2*r.window).Err(); err != nil {
			return false, err
		}
	}
	return n <= r.limit, nil
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.Client.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.Client.Close()
}
