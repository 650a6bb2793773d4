package store

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const RateLimitWindow = 60 * time.Second

// CheckRateLimit applies a sliding-window limit on message sends per
// user. Returns the current count and whether this send is allowed.
func (c *Client) CheckRateLimit(ctx context.Context, userID string, limit int) (int, bool, error) {
	rateKey := fmt.Sprintf("rate:%s", userID)
	now := time.Now().UnixMilli()
	windowStart := now - RateLimitWindow.Milliseconds()

	c.rdb.ZRemRangeByScore(ctx, rateKey, "0", fmt.Sprintf("%d", windowStart))

	count, err := c.rdb.ZCard(ctx, rateKey).Result()
	if err != nil {
		return 0, false, fmt.Errorf("failed to check rate limit: %w", err)
	}

	if int(count) >= limit {
		return int(count), false, nil
	}

	c.rdb.ZAdd(ctx, rateKey, goredis.Z{
		Score:  float64(now),
		Member: fmt.Sprintf("%d", now),
	})
	c.rdb.Expire(ctx, rateKey, RateLimitWindow)

	return int(count) + 1, true, nil
}
