package models

// Realtime event names shared by the gateway and the conversation service.
// Inbound events arrive as a tagged envelope; outbound events are emitted to
// rooms with one of these tags.
const (
	EventJoinConversation  = "join_conversation"
	EventLeaveConversation = "leave_conversation"
	EventTypingStart       = "typing_start"
	EventTypingStop        = "typing_stop"

	EventNewConversation    = "new_conversation"
	EventNewMessage         = "new_message"
	EventMessageRead        = "message_read"
	EventUserTyping         = "user_typing"
	EventUserPresence       = "user_presence"
	EventConversationJoined = "conversation_joined"
	EventConversationLeft   = "conversation_left"
	EventError              = "error"
)

type NewConversationPayload struct {
	Data *Conversation `json:"data"`
}

type NewMessagePayload struct {
	Data *MessageDetail `json:"data"`
}

type MessageReadPayload struct {
	UserID         string `json:"user_id"`
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id"`
}

type UserTypingPayload struct {
	UserID         string `json:"user_id"`
	ConversationID string `json:"conversation_id"`
	Typing         bool   `json:"typing"`
}

type UserPresencePayload struct {
	UserID string `json:"user_id"`
	Status bool   `json:"status"`
}

type ConversationJoinedPayload struct {
	ConversationID string `json:"conversation_id"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
