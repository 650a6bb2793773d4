package store

import (
	"context"
	"fmt"
)

func roomMembersKey(roomID string) string {
	return fmt.Sprintf("room:%s:members", roomID)
}

// HasRoomAccess reports whether the user is a participant of the
// conversation. Membership truth is owned by the platform backend; the
// realtime layer re-checks it on every send.
func (c *Client) HasRoomAccess(ctx context.Context, userID, roomID string) (bool, error) {
	ok, err := c.rdb.SIsMember(ctx, roomMembersKey(roomID), userID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check room access: %w", err)
	}
	return ok, nil
}

func (c *Client) RoomParticipants(ctx context.Context, roomID string) ([]string, error) {
	members, err := c.rdb.SMembers(ctx, roomMembersKey(roomID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list room participants: %w", err)
	}
	return members, nil
}

func (c *Client) AddParticipant(ctx context.Context, roomID, userID string) error {
	if err := c.rdb.SAdd(ctx, roomMembersKey(roomID), userID).Err(); err != nil {
		return fmt.Errorf("failed to add participant: %w", err)
	}
	return nil
}

func (c *Client) RemoveParticipant(ctx context.Context, roomID, userID string) error {
	if err := c.rdb.SRem(ctx, roomMembersKey(roomID), userID).Err(); err != nil {
		return fmt.Errorf("failed to remove participant: %w", err)
	}
	return nil
}
