package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Message is a persisted chat message. Read state lives in the store,
// keyed per message; the realtime layer never mutates a message after
// creation.
type Message struct {
	ID       string    `json:"id"`
	RoomID   string    `json:"room_id"`
	SenderID string    `json:"sender_id"`
	Content  string    `json:"content"`
	Type     string    `json:"type"`
	SentAt   time.Time `json:"sent_at"`
}

func msgKey(roomID, messageID string) string {
	return fmt.Sprintf("msg:%s:%s", roomID, messageID)
}

func roomLogKey(roomID string) string {
	return fmt.Sprintf("room_msgs:%s", roomID)
}

func readersKey(messageID string) string {
	return fmt.Sprintf("msg_read:%s", messageID)
}

// CreateMessage durably stores a new message and appends it to the
// room's message log. The returned record carries the assigned ID and
// server timestamp.
func (c *Client) CreateMessage(ctx context.Context, roomID, senderID, content, msgType string) (*Message, error) {
	if msgType == "" {
		msgType = "text"
	}

	msg := &Message{
		ID:       uuid.NewString(),
		RoomID:   roomID,
		SenderID: senderID,
		Content:  content,
		Type:     msgType,
		SentAt:   time.Now().UTC(),
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}

	if err := c.rdb.Set(ctx, msgKey(roomID, msg.ID), data, 0).Err(); err != nil {
		return nil, fmt.Errorf("failed to store message: %w", err)
	}
	if err := c.rdb.RPush(ctx, roomLogKey(roomID), msg.ID).Err(); err != nil {
		return nil, fmt.Errorf("failed to append to room log: %w", err)
	}

	return msg, nil
}

func (c *Client) GetMessage(ctx context.Context, roomID, messageID string) (*Message, error) {
	data, err := c.rdb.Get(ctx, msgKey(roomID, messageID)).Bytes()
	if err != nil {
		return nil, fmt.Errorf("message not found: %w", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message: %w", err)
	}
	return &msg, nil
}

// MarkRead records the reader against each message and returns the IDs
// that were newly marked, grouped by the message's sender. Messages the
// reader authored are skipped, as are IDs already read or unknown.
func (c *Client) MarkRead(ctx context.Context, roomID, readerID string, messageIDs []string) (map[string][]string, error) {
	bySender := make(map[string][]string)

	for _, id := range messageIDs {
		msg, err := c.GetMessage(ctx, roomID, id)
		if err != nil {
			continue
		}
		if msg.SenderID == readerID {
			continue
		}

		added, err := c.rdb.SAdd(ctx, readersKey(id), readerID).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to mark message read: %w", err)
		}
		if added == 0 {
			continue
		}
		bySender[msg.SenderID] = append(bySender[msg.SenderID], id)
	}

	return bySender, nil
}

// UpdateLastMessage refreshes the conversation's preview summary.
// Callers treat failures as best-effort.
func (c *Client) UpdateLastMessage(ctx context.Context, roomID string, msg *Message) error {
	summaryKey := fmt.Sprintf("room:%s:summary", roomID)
	return c.rdb.HSet(ctx, summaryKey, map[string]interface{}{
		"last_message_id": msg.ID,
		"last_sender_id":  msg.SenderID,
		"last_content":    msg.Content,
		"last_sent_at":    msg.SentAt.Format(time.RFC3339Nano),
	}).Err()
}
