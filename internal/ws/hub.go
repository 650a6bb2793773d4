package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"worklink/internal/auth"
	"worklink/internal/store"
)

// Store is the hosted persistence collaborator. Every call is an I/O
// boundary; the hub never holds registry locks across them.
type Store interface {
	CreateMessage(ctx context.Context, roomID, senderID, content, msgType string) (*store.Message, error)
	HasRoomAccess(ctx context.Context, userID, roomID string) (bool, error)
	RoomParticipants(ctx context.Context, roomID string) ([]string, error)
	MarkRead(ctx context.Context, roomID, readerID string, messageIDs []string) (map[string][]string, error)
	UpdateLastMessage(ctx context.Context, roomID string, msg *store.Message) error
	PushPreference(ctx context.Context, userID string) (bool, error)
	CheckRateLimit(ctx context.Context, userID string, limit int) (int, bool, error)
}

// Notifier is the push/email dispatch collaborator.
type Notifier interface {
	Dispatch(ctx context.Context, userID, event string, payload any) error
}

// Hub routes events between authenticated connections. The registry and
// room index are the only shared mutable state; everything else is
// per-event and flows through collaborator calls.
type Hub struct {
	registry  *registry
	rooms     *roomIndex
	store     Store
	notifier  Notifier
	log       *slog.Logger
	rateLimit int
}

func NewHub(st Store, notifier Notifier, logger *slog.Logger, grace time.Duration, rateLimitPerMinute int) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Hub{
		rooms:     newRoomIndex(),
		store:     st,
		notifier:  notifier,
		log:       logger,
		rateLimit: rateLimitPerMinute,
	}
	h.registry = newRegistry(grace, h.broadcastStatus)
	return h
}

// NewClient wraps an upgraded connection in a Client. The caller must
// have verified the identity first; Register admits it to the registry.
func (h *Hub) NewClient(conn *websocket.Conn, identity auth.Identity) *Client {
	return newClient(h, conn, identity)
}

func (h *Hub) Register(c *Client) error {
	if err := h.registry.register(c); err != nil {
		return err
	}
	h.log.Info("connection registered", "conn_id", c.connID, "user_id", c.UserID())
	return nil
}

func (h *Hub) dropClient(c *Client) {
	h.rooms.drop(c.connID)
	h.registry.deregister(c.connID)
	c.close()
	h.log.Info("connection dropped", "conn_id", c.connID, "user_id", c.UserID())
}

func (h *Hub) handleFrame(c *Client, frame *Frame) {
	ctx := context.Background()

	switch frame.Event {
	case EventJoinRoom:
		h.handleJoinRoom(c, frame)
	case EventLeaveRoom:
		h.handleLeaveRoom(c, frame)
	case EventSendMessage:
		h.handleSendMessage(ctx, c, frame)
	case EventTyping:
		h.handleTyping(c, frame)
	case EventReadMessages:
		h.handleReadMessages(ctx, c, frame)
	case EventCallUser:
		h.handleCallUser(c, frame)
	case EventCallAnswer:
		h.handleCallAnswer(c, frame)
	case EventICECandidate:
		h.handleICECandidate(c, frame)
	case "ping":
		return
	default:
		h.sendError(c, CodeValidationFailed, "unknown event: "+frame.Event)
	}
}

func (h *Hub) handleJoinRoom(c *Client, frame *Frame) {
	var data JoinRoomData
	if err := decode(frame, &data); err != nil || data.RoomID == "" {
		h.sendError(c, CodeValidationFailed, "join_room requires room_id")
		return
	}
	h.rooms.join(c, data.RoomID)
}

func (h *Hub) handleLeaveRoom(c *Client, frame *Frame) {
	var data JoinRoomData
	if err := decode(frame, &data); err != nil || data.RoomID == "" {
		h.sendError(c, CodeValidationFailed, "leave_room requires room_id")
		return
	}
	h.rooms.leave(c.connID, data.RoomID)
}

// handleSendMessage runs the pipeline: validate, access check, persist,
// broadcast, then best-effort summary update and notification dispatch.
// Nothing is broadcast unless the store accepted the message.
func (h *Hub) handleSendMessage(ctx context.Context, c *Client, frame *Frame) {
	var data SendMessageData
	if err := decode(frame, &data); err != nil || data.RoomID == "" || data.Content == "" {
		h.sendError(c, CodeValidationFailed, "send_message requires room_id and content")
		return
	}

	senderID := c.UserID()

	if h.rateLimit > 0 {
		_, allowed, err := h.store.CheckRateLimit(ctx, senderID, h.rateLimit)
		if err != nil {
			h.log.Warn("rate limit check failed", "user_id", senderID, "error", err)
		} else if !allowed {
			h.sendError(c, CodeRateLimited, "message rate limit exceeded")
			return
		}
	}

	allowed, err := h.store.HasRoomAccess(ctx, senderID, data.RoomID)
	if err != nil || !allowed {
		h.sendError(c, CodeAuthorizationDenied, "no access to this conversation")
		return
	}

	msg, err := h.store.CreateMessage(ctx, data.RoomID, senderID, data.Content, data.Type)
	if err != nil {
		h.log.Error("message persistence failed", "room_id", data.RoomID, "user_id", senderID, "error", err)
		h.sendError(c, CodePersistenceFailed, "message could not be saved")
		return
	}

	out := NewMessageData{
		ID:              msg.ID,
		RoomID:          msg.RoomID,
		SenderID:        msg.SenderID,
		SenderFirstName: c.identity.FirstName,
		SenderLastName:  c.identity.LastName,
		Content:         msg.Content,
		Type:            msg.Type,
		SentAt:          msg.SentAt.Format(time.RFC3339Nano),
		TempID:          data.TempID,
	}
	for _, member := range h.rooms.members(data.RoomID) {
		if err := member.Send(EventNewMessage, out); err != nil {
			h.log.Warn("message delivery dropped", "conn_id", member.connID, "error", err)
		}
	}

	if err := h.store.UpdateLastMessage(ctx, data.RoomID, msg); err != nil {
		h.log.Warn("last message summary update failed", "room_id", data.RoomID, "error", err)
	}

	go h.dispatchNotifications(context.Background(), msg, out)
}

// dispatchNotifications pushes to participants who are not connected,
// and delivers an in-band notification to participants who are online
// elsewhere in the app but not viewing the conversation. Failures never
// affect the already-delivered message.
func (h *Hub) dispatchNotifications(ctx context.Context, msg *store.Message, out NewMessageData) {
	participants, err := h.store.RoomParticipants(ctx, msg.RoomID)
	if err != nil {
		h.log.Warn("participant lookup failed", "room_id", msg.RoomID, "error", err)
		return
	}

	joined := make(map[string]bool)
	for _, member := range h.rooms.members(msg.RoomID) {
		joined[member.UserID()] = true
	}

	for _, userID := range participants {
		if userID == msg.SenderID {
			continue
		}

		if !h.registry.isOnline(userID) {
			if h.notifier == nil {
				continue
			}
			if err := h.notifier.Dispatch(ctx, userID, EventNewMessage, out); err != nil {
				h.log.Warn("push dispatch failed", "user_id", userID, "error", err)
			}
			continue
		}

		if joined[userID] {
			continue
		}
		enabled, err := h.store.PushPreference(ctx, userID)
		if err != nil || !enabled {
			continue
		}
		h.SendToUser(userID, EventPushNotification, out)
	}
}

func (h *Hub) handleTyping(c *Client, frame *Frame) {
	var data TypingData
	if err := decode(frame, &data); err != nil || data.RoomID == "" {
		h.sendError(c, CodeValidationFailed, "typing requires room_id")
		return
	}

	out := UserTypingData{
		RoomID:   data.RoomID,
		UserID:   c.UserID(),
		IsTyping: data.IsTyping,
	}
	for _, member := range h.rooms.members(data.RoomID) {
		if member.UserID() == c.UserID() {
			continue
		}
		member.Send(EventUserTyping, out)
	}
}

// handleReadMessages marks messages read and notifies each original
// sender with only the IDs that sender authored. The reader never gets
// an event, and reader-authored IDs are filtered out by the store.
func (h *Hub) handleReadMessages(ctx context.Context, c *Client, frame *Frame) {
	var data ReadMessagesData
	if err := decode(frame, &data); err != nil || data.RoomID == "" || len(data.MessageIDs) == 0 {
		h.sendError(c, CodeValidationFailed, "read_messages requires room_id and message_ids")
		return
	}

	readerID := c.UserID()
	bySender, err := h.store.MarkRead(ctx, data.RoomID, readerID, data.MessageIDs)
	if err != nil {
		h.log.Error("mark read failed", "room_id", data.RoomID, "user_id", readerID, "error", err)
		h.sendError(c, CodePersistenceFailed, "messages could not be marked read")
		return
	}

	for senderID, ids := range bySender {
		out := MessagesReadData{
			RoomID:     data.RoomID,
			ReaderID:   readerID,
			MessageIDs: ids,
		}
		for _, conn := range h.registry.connectionsFor(senderID) {
			conn.Send(EventMessagesRead, out)
		}
	}
}

func (h *Hub) handleCallUser(c *Client, frame *Frame) {
	var data CallUserData
	if err := decode(frame, &data); err != nil || data.UserID == "" || len(data.Offer) == 0 {
		h.sendError(c, CodeValidationFailed, "call_user requires user_id and offer")
		return
	}

	targets := h.registry.connectionsFor(data.UserID)
	if len(targets) == 0 {
		c.Send(EventCallFailed, CallFailedData{
			UserID: data.UserID,
			Reason: "user offline",
		})
		return
	}

	out := IncomingCallData{
		CallerID:        c.UserID(),
		CallerFirstName: c.identity.FirstName,
		CallerLastName:  c.identity.LastName,
		Offer:           data.Offer,
		RoomID:          data.RoomID,
	}
	for _, target := range targets {
		target.Send(EventIncomingCall, out)
	}
	c.Send(EventCallSent, CallSentData{UserID: data.UserID})
}

func (h *Hub) handleCallAnswer(c *Client, frame *Frame) {
	var data CallAnswerData
	if err := decode(frame, &data); err != nil || data.CallerID == "" {
		h.sendError(c, CodeValidationFailed, "call_answer requires caller_id")
		return
	}

	out := CallAnsweredData{UserID: c.UserID(), Answer: data.Answer}
	for _, conn := range h.registry.connectionsFor(data.CallerID) {
		conn.Send(EventCallAnswered, out)
	}
}

func (h *Hub) handleICECandidate(c *Client, frame *Frame) {
	var data ICECandidateData
	if err := decode(frame, &data); err != nil || data.UserID == "" {
		h.sendError(c, CodeValidationFailed, "ice_candidate requires user_id")
		return
	}

	out := ICECandidateRelayData{UserID: c.UserID(), Candidate: data.Candidate}
	for _, conn := range h.registry.connectionsFor(data.UserID) {
		conn.Send(EventICECandidate, out)
	}
}

// broadcastStatus announces a presence transition to every connection.
// No history is kept; late joiners query presence explicitly.
func (h *Hub) broadcastStatus(userID string, online bool) {
	status := "offline"
	if online {
		status = "online"
	}
	out := UserStatusData{
		UserID:    userID,
		Status:    status,
		Timestamp: time.Now().Unix(),
	}
	for _, c := range h.registry.allClients() {
		c.Send(EventUserStatus, out)
	}
	h.log.Info("presence transition", "user_id", userID, "status", status)
}

// SendToUser delivers an event to every connection of a user. Used by
// the platform's controllers to push over the live channel. Returns the
// number of connections reached.
func (h *Hub) SendToUser(userID, event string, data any) int {
	sent := 0
	for _, c := range h.registry.connectionsFor(userID) {
		if c.Send(event, data) == nil {
			sent++
		}
	}
	return sent
}

// SendToRoom delivers an event to every connection joined to a room.
func (h *Hub) SendToRoom(roomID, event string, data any) int {
	sent := 0
	for _, c := range h.rooms.members(roomID) {
		if c.Send(event, data) == nil {
			sent++
		}
	}
	return sent
}

func (h *Hub) IsUserOnline(userID string) bool {
	return h.registry.isOnline(userID)
}

func (h *Hub) OnlineUsers() []string {
	return h.registry.onlineUsers()
}

func (h *Hub) ConnectionCount() int {
	return h.registry.connCount()
}

func (h *Hub) sendError(c *Client, code, message string) {
	if err := c.Send(EventError, ErrorData{Code: code, Message: message}); err != nil {
		h.log.Warn("error event dropped", "conn_id", c.connID, "code", code)
	}
}

var errEmptyPayload = errors.New("empty payload")

func decode(frame *Frame, v any) error {
	if len(frame.Data) == 0 {
		return errEmptyPayload
	}
	return json.Unmarshal(frame.Data, v)
}
