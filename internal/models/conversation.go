package models

import "time"

type ConversationType string

const (
	ConversationTypePrivate ConversationType = "PRIVATE"
	ConversationTypeGroup   ConversationType = "GROUP"
)

type Conversation struct {
	ID            string           `json:"id"`
	Type          ConversationType `json:"type"`
	Title         *string          `json:"title,omitempty"`
	LastMessageID *string          `json:"last_message_id,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

type ConversationMember struct {
	ID                string     `json:"id"`
	ConversationID    string     `json:"conversation_id"`
	UserID            string     `json:"user_id"`
	UnreadCount       int        `json:"unread_count"`
	LastReadMessageID *string    `json:"last_read_message_id,omitempty"`
	LastReadAt        *time.Time `json:"last_read_at,omitempty"`
}

// ConversationSummary is one row of a user's conversation list: the
// conversation itself, the other members, the most recent message, and the
// caller's own unread counter.
type ConversationSummary struct {
	Conversation
	OtherMembers []UserSummary   `json:"other_members"`
	LastMessage  *MessagePreview `json:"last_message,omitempty"`
	UnreadCount  int             `json:"unread_count"`
}

// MemberReadUpdate describes how a receiver's read state changes when a new
// message is committed. Reset means the member was actively viewing the
// conversation and is deemed to have read the message live; otherwise the
// unread counter is incremented.
type MemberReadUpdate struct {
	UserID    string
	Reset     bool
	MessageID string
	ReadAt    time.Time
}
