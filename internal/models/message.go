package models

import "time"

type AttachmentType string

const (
	AttachmentTypeImage AttachmentType = "IMAGE"
	AttachmentTypeVideo AttachmentType = "VIDEO"
	AttachmentTypeAudio AttachmentType = "AUDIO"
	AttachmentTypeFile  AttachmentType = "FILE"
)

type Message struct {
	ID               string    `json:"id"`
	ConversationID   string    `json:"conversation_id"`
	SenderID         string    `json:"sender_id"`
	Body             *string   `json:"message,omitempty"`
	PostID           *string   `json:"post_id,omitempty"`
	ReplyToMessageID *string   `json:"reply_to_message_id,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

type MessageAttachment struct {
	ID           string         `json:"id"`
	MessageID    string         `json:"message_id"`
	URL          string         `json:"url"`
	ThumbnailURL *string        `json:"thumbnail_url,omitempty"`
	StorageID    string         `json:"storage_id"`
	Type         AttachmentType `json:"type"`
}

// MessageDetail is the fully composed message handed to clients: core fields
// plus attachments, the sender, the referenced post snapshot, and the
// replied-to message preview when present.
type MessageDetail struct {
	Message
	Sender         *UserSummary        `json:"sender,omitempty"`
	Attachments    []MessageAttachment `json:"attachments"`
	Post           *PostSnapshot       `json:"post_data,omitempty"`
	RepliedMessage *MessagePreview     `json:"replied_message,omitempty"`
}

// MessagePreview is the short form used for reply references and
// conversation-list rows.
type MessagePreview struct {
	ID         string             `json:"id"`
	Body       *string            `json:"message,omitempty"`
	Sender     *UserSummary       `json:"sender,omitempty"`
	Attachment *MessageAttachment `json:"attachment,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
}

// PostSnapshot is the display copy of a post shared into a conversation.
type PostSnapshot struct {
	ID           string       `json:"id"`
	UserID       string       `json:"user_id"`
	Caption      *string      `json:"caption,omitempty"`
	LikeCount    int          `json:"like_count"`
	CommentCount int          `json:"comment_count"`
	Author       *UserSummary `json:"author,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
}
