package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

func pushPrefKey(userID string) string {
	return fmt.Sprintf("user:%s:push_pref", userID)
}

func pushTokenKey(userID string) string {
	return fmt.Sprintf("user:%s:push_token", userID)
}

// PushPreference reports whether the user opted into push notifications.
// Absence of a stored preference means enabled.
func (c *Client) PushPreference(ctx context.Context, userID string) (bool, error) {
	val, err := c.rdb.Get(ctx, pushPrefKey(userID)).Result()
	if err == redis.Nil {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read push preference: %w", err)
	}
	return val != "disabled", nil
}

func (c *Client) SetPushPreference(ctx context.Context, userID string, enabled bool) error {
	val := "enabled"
	if !enabled {
		val = "disabled"
	}
	return c.rdb.Set(ctx, pushPrefKey(userID), val, 0).Err()
}

func (c *Client) RegisterPushToken(ctx context.Context, userID, token string) error {
	return c.rdb.Set(ctx, pushTokenKey(userID), token, 30*24*time.Hour).Err()
}

func (c *Client) PushToken(ctx context.Context, userID string) (string, error) {
	token, err := c.rdb.Get(ctx, pushTokenKey(userID)).Result()
	if err != nil {
		return "", fmt.Errorf("no push token for user: %w", err)
	}
	return token, nil
}

func (c *Client) DeletePushToken(ctx context.Context, userID string) error {
	return c.rdb.Del(ctx, pushTokenKey(userID)).Err()
}
