package ratelimit

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "ratelimit:"

// Redis is the shared fixed-window backend: INCR plus EXPIRE on the first hit
// of a window. When Redis is unreachable the guard fails open: abuse damping
// is not worth taking the site down for.
type Redis struct {
	client *redis.Client
	quotas map[Class]Quota
}

func NewRedis(client *redis.Client, quotas map[Class]Quota) *Redis {
	if quotas == nil {
		quotas = DefaultQuotas
	}
	return &Redis{client: client, quotas: quotas}
}

func (r *Redis) Check(ctx context.Context, key string, class Class) (Result, error) {
	q := quotaFor(r.quotas, class)
	redisKey := redisKeyPrefix + string(class) + ":" + key

	count, err := r.client.Incr(ctx, redisKey).Result()
	if err != nil {
		slog.WarnContext(ctx, "rate limit backend unavailable, failing open", "error", err)
		return Result{Allowed: true, Limit: q.Limit, Remaining: q.Limit}, nil
	}
	if count == 1 {
		if err := r.client.Expire(ctx, redisKey, q.Window).Err(); err != nil {
			slog.WarnContext(ctx, "rate limit expire failed", "error", err)
		}
	}

	if int(count) > q.Limit {
		retry := q.Window
		if ttl, err := r.client.TTL(ctx, redisKey).Result(); err == nil && ttl > 0 {
			retry = ttl
		}
		return Result{Allowed: false, Limit: q.Limit, Remaining: 0, RetryAfter: retry}, nil
	}
	return Result{Allowed: true, Limit: q.Limit, Remaining: q.Limit - int(count)}, nil
}
