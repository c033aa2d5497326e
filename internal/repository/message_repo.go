package repository

import (
	"context"
	"time"

	"github.com/NamanGajera/Pictora-Backend/internal/models"
)

type MessageRepository struct {
	db TxBeginner
}

func NewMessageRepository(db TxBeginner) *MessageRepository {
	return &MessageRepository{db: db}
}

// CreateMessage commits the message row, its attachment rows, the
// conversation's last-message pointer, and every receiver's read-state
// change as one atomic unit. The unread increment is a single-row atomic
// UPDATE so concurrent sends never lose a count.
func (r *MessageRepository) CreateMessage(
	ctx context.Context,
	message *models.Message,
	attachments []models.MessageAttachment,
	updates []models.MemberReadUpdate,
) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	err = tx.QueryRow(ctx, `
		INSERT INTO conversation_messages (id, conversation_id, sender_id, body, post_id, reply_to_message_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`,
		message.ID,
		message.ConversationID,
		message.SenderID,
		message.Body,
		message.PostID,
		message.ReplyToMessageID,
	).Scan(&message.CreatedAt)
	if err != nil {
		return err
	}

	for _, attachment := range attachments {
		_, err = tx.Exec(ctx, `
			INSERT INTO message_attachments (id, message_id, url, thumbnail_url, storage_id, type)
			VALUES ($1, $2, $3, $4, $5, $6)
		`,
			attachment.ID,
			attachment.MessageID,
			attachment.URL,
			attachment.ThumbnailURL,
			attachment.StorageID,
			attachment.Type,
		)
		if err != nil {
			return err
		}
	}

	_, err = tx.Exec(ctx, `
		UPDATE conversations
		SET last_message_id = $1, updated_at = NOW()
		WHERE id = $2
	`, message.ID, message.ConversationID)
	if err != nil {
		return err
	}

	for _, update := range updates {
		if update.Reset {
			_, err = tx.Exec(ctx, `
				UPDATE conversation_members
				SET last_read_message_id = $1, unread_count = 0, last_read_at = $2
				WHERE conversation_id = $3 AND user_id = $4
			`, update.MessageID, update.ReadAt, message.ConversationID, update.UserID)
		} else {
			_, err = tx.Exec(ctx, `
				UPDATE conversation_members
				SET unread_count = unread_count + 1
				WHERE conversation_id = $1 AND user_id = $2
			`, message.ConversationID, update.UserID)
		}
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// GetLatestMessage returns the most recent message in the conversation, or
// pgx.ErrNoRows when the conversation has no messages yet.
func (r *MessageRepository) GetLatestMessage(ctx context.Context, conversationID string) (*models.Message, error) {
	query := `
		SELECT id, conversation_id, sender_id, body, post_id, reply_to_message_id, created_at
		FROM conversation_messages
		WHERE conversation_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`

	var message models.Message
	err := r.db.QueryRow(ctx, query, conversationID).Scan(
		&message.ID,
		&message.ConversationID,
		&message.SenderID,
		&message.Body,
		&message.PostID,
		&message.ReplyToMessageID,
		&message.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &message, nil
}

func (r *MessageRepository) MarkMemberRead(
	ctx context.Context,
	conversationID string,
	userID string,
	messageID string,
	readAt time.Time,
) error {
	_, err := r.db.Exec(ctx, `
		UPDATE conversation_members
		SET last_read_message_id = $1, unread_count = 0, last_read_at = $2
		WHERE conversation_id = $3 AND user_id = $4
	`, messageID, readAt, conversationID, userID)
	return err
}

// ListByConversation returns one page of messages newest-first, sender
// summaries included, plus the total count for pagination metadata.
func (r *MessageRepository) ListByConversation(
	ctx context.Context,
	conversationID string,
	limit int,
	offset int,
) ([]models.MessageDetail, int, error) {
	var total int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM conversation_messages
		WHERE conversation_id = $1
	`, conversationID).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	query := `
		SELECT
			m.id, m.conversation_id, m.sender_id, m.body, m.post_id, m.reply_to_message_id, m.created_at,
			u.id, u.user_name, u.full_name, u.profile_picture
		FROM conversation_messages m
		JOIN users u ON u.id = m.sender_id
		WHERE m.conversation_id = $1
		ORDER BY m.created_at DESC, m.id DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, conversationID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	messages := make([]models.MessageDetail, 0)
	for rows.Next() {
		var detail models.MessageDetail
		var sender models.UserSummary
		if err := rows.Scan(
			&detail.ID,
			&detail.ConversationID,
			&detail.SenderID,
			&detail.Body,
			&detail.PostID,
			&detail.ReplyToMessageID,
			&detail.CreatedAt,
			&sender.ID,
			&sender.UserName,
			&sender.FullName,
			&sender.ProfilePicture,
		); err != nil {
			return nil, 0, err
		}
		detail.Sender = &sender
		detail.Attachments = make([]models.MessageAttachment, 0)
		messages = append(messages, detail)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return messages, total, nil
}

// ListAttachments returns every attachment row for the given message ids,
// grouped by message.
func (r *MessageRepository) ListAttachments(ctx context.Context, messageIDs []string) (map[string][]models.MessageAttachment, error) {
	byMessage := make(map[string][]models.MessageAttachment)
	if len(messageIDs) == 0 {
		return byMessage, nil
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, message_id, url, thumbnail_url, storage_id, type
		FROM message_attachments
		WHERE message_id = ANY($1)
		ORDER BY id
	`, messageIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var attachment models.MessageAttachment
		if err := rows.Scan(
			&attachment.ID,
			&attachment.MessageID,
			&attachment.URL,
			&attachment.ThumbnailURL,
			&attachment.StorageID,
			&attachment.Type,
		); err != nil {
			return nil, err
		}
		byMessage[attachment.MessageID] = append(byMessage[attachment.MessageID], attachment)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return byMessage, nil
}

// GetPreviews loads the short reply form for the given message ids: body,
// sender, and the first attachment when one exists.
func (r *MessageRepository) GetPreviews(ctx context.Context, messageIDs []string) (map[string]models.MessagePreview, error) {
	previews := make(map[string]models.MessagePreview)
	if len(messageIDs) == 0 {
		return previews, nil
	}

	rows, err := r.db.Query(ctx, `
		SELECT
			m.id, m.body, m.created_at,
			u.id, u.user_name, u.full_name, u.profile_picture
		FROM conversation_messages m
		JOIN users u ON u.id = m.sender_id
		WHERE m.id = ANY($1)
	`, messageIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var preview models.MessagePreview
		var sender models.UserSummary
		if err := rows.Scan(
			&preview.ID,
			&preview.Body,
			&preview.CreatedAt,
			&sender.ID,
			&sender.UserName,
			&sender.FullName,
			&sender.ProfilePicture,
		); err != nil {
			return nil, err
		}
		preview.Sender = &sender
		previews[preview.ID] = preview
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	attachments, err := r.ListAttachments(ctx, messageIDs)
	if err != nil {
		return nil, err
	}
	for id, list := range attachments {
		if preview, ok := previews[id]; ok && len(list) > 0 {
			first := list[0]
			preview.Attachment = &first
			previews[id] = preview
		}
	}

	return previews, nil
}
