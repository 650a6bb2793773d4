package ws

import "encoding/json"

// Inbound events
const (
	EventJoinRoom     = "join_room"
	EventLeaveRoom    = "leave_room"
	EventSendMessage  = "send_message"
	EventTyping       = "typing"
	EventReadMessages = "read_messages"
	EventCallUser     = "call_user"
	EventCallAnswer   = "call_answer"
	EventICECandidate = "ice_candidate"
)

// Outbound events
const (
	EventNewMessage       = "new_message"
	EventUserTyping       = "user_typing"
	EventMessagesRead     = "messages_read"
	EventIncomingCall     = "incoming_call"
	EventCallAnswered     = "call_answered"
	EventCallSent         = "call_sent"
	EventCallFailed       = "call_failed"
	EventUserStatus       = "user_status"
	EventError            = "error"
	EventPushNotification = "push_notification"
)

// Error codes carried by the error event.
const (
	CodeValidationFailed    = "validation_failed"
	CodeAuthorizationDenied = "authorization_denied"
	CodePersistenceFailed   = "persistence_failed"
	CodeRateLimited         = "rate_limited"
)

// Frame is one inbound message on the socket. Data stays raw until the
// handler for the event decodes it.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type outFrame struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

type JoinRoomData struct {
	RoomID string `json:"room_id"`
}

type SendMessageData struct {
	RoomID  string `json:"room_id"`
	Content string `json:"content"`
	Type    string `json:"type,omitempty"`
	TempID  string `json:"temp_id,omitempty"`
}

type TypingData struct {
	RoomID   string `json:"room_id"`
	IsTyping bool   `json:"is_typing"`
}

type ReadMessagesData struct {
	RoomID     string   `json:"room_id"`
	MessageIDs []string `json:"message_ids"`
}

type CallUserData struct {
	UserID string          `json:"user_id"`
	Offer  json.RawMessage `json:"offer"`
	RoomID string          `json:"room_id,omitempty"`
}

type CallAnswerData struct {
	CallerID string          `json:"caller_id"`
	Answer   json.RawMessage `json:"answer"`
}

type ICECandidateData struct {
	UserID    string          `json:"user_id"`
	Candidate json.RawMessage `json:"candidate"`
}

// NewMessageData is the fan-out record: the persisted message plus the
// sender's profile and the client correlation token for optimistic UI.
type NewMessageData struct {
	ID              string `json:"id"`
	RoomID          string `json:"room_id"`
	SenderID        string `json:"sender_id"`
	SenderFirstName string `json:"sender_first_name"`
	SenderLastName  string `json:"sender_last_name"`
	Content         string `json:"content"`
	Type            string `json:"type"`
	SentAt          string `json:"sent_at"`
	TempID          string `json:"temp_id,omitempty"`
}

type UserTypingData struct {
	RoomID   string `json:"room_id"`
	UserID   string `json:"user_id"`
	IsTyping bool   `json:"is_typing"`
}

// MessagesReadData is delivered to one sender and lists only message IDs
// that sender authored.
type MessagesReadData struct {
	RoomID     string   `json:"room_id"`
	ReaderID   string   `json:"reader_id"`
	MessageIDs []string `json:"message_ids"`
}

type IncomingCallData struct {
	CallerID        string          `json:"caller_id"`
	CallerFirstName string          `json:"caller_first_name"`
	CallerLastName  string          `json:"caller_last_name"`
	Offer           json.RawMessage `json:"offer"`
	RoomID          string          `json:"room_id,omitempty"`
}

type CallAnsweredData struct {
	UserID string          `json:"user_id"`
	Answer json.RawMessage `json:"answer"`
}

type ICECandidateRelayData struct {
	UserID    string          `json:"user_id"`
	Candidate json.RawMessage `json:"candidate"`
}

type CallSentData struct {
	UserID string `json:"user_id"`
}

type CallFailedData struct {
	UserID string `json:"user_id"`
	Reason string `json:"reason"`
}

type UserStatusData struct {
	UserID    string `json:"user_id"`
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
