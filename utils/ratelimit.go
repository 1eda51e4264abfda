package utils

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimit 固定窗口限流，rdb 为 nil 或出错时放行
func RateLimit(ctx context.Context, rdb *redis.Client, key string, limit int, window time.Duration) bool {
	if rdb == nil {
		return true
	}

	redisKey := fmt.Sprintf("ratelimit:%s", key)
	pipe := rdb.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	ttl := pipe.TTL(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return true
	}

	// 没有过期时间的计数器（首次或上次设置失败）补上窗口
	if ttl.Val() < 0 {
		rdb.Expire(ctx, redisKey, window)
	}

	return incr.Val() <= int64(limit)
}
