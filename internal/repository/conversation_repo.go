package repository

import (
	"context"
	"database/sql"

	"github.com/NamanGajera/Pictora-Backend/internal/models"
	"github.com/google/uuid"
)

type ConversationRepository struct {
	db TxBeginner
}

func NewConversationRepository(db TxBeginner) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// FindPrivateBetween returns the id of the existing PRIVATE conversation
// shared by the two users, or pgx.ErrNoRows when none exists.
func (r *ConversationRepository) FindPrivateBetween(ctx context.Context, userA, userB string) (string, error) {
	query := `
		SELECT c.id
		FROM conversations c
		JOIN conversation_members m1 ON m1.conversation_id = c.id AND m1.user_id = $1
		JOIN conversation_members m2 ON m2.conversation_id = c.id AND m2.user_id = $2
		WHERE c.type = 'PRIVATE'
		LIMIT 1
	`

	var conversationID string
	if err := r.db.QueryRow(ctx, query, userA, userB).Scan(&conversationID); err != nil {
		return "", err
	}
	return conversationID, nil
}

// CreateWithMembers inserts the conversation and bulk-inserts all initial
// member rows in one transaction.
func (r *ConversationRepository) CreateWithMembers(
	ctx context.Context,
	convType models.ConversationType,
	title *string,
	memberIDs []string,
) (*models.Conversation, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	conversation := models.Conversation{
		ID:    uuid.NewString(),
		Type:  convType,
		Title: title,
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO conversations (id, type, title)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at
	`, conversation.ID, conversation.Type, conversation.Title).Scan(
		&conversation.CreatedAt,
		&conversation.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	for _, userID := range memberIDs {
		_, err = tx.Exec(ctx, `
			INSERT INTO conversation_members (id, conversation_id, user_id)
			VALUES ($1, $2, $3)
		`, uuid.NewString(), conversation.ID, userID)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return &conversation, nil
}

// GetMember returns the membership row for the user, or pgx.ErrNoRows when
// the user does not belong to the conversation.
func (r *ConversationRepository) GetMember(ctx context.Context, conversationID, userID string) (*models.ConversationMember, error) {
	query := `
		SELECT id, conversation_id, user_id, unread_count, last_read_message_id, last_read_at
		FROM conversation_members
		WHERE conversation_id = $1 AND user_id = $2
	`

	var member models.ConversationMember
	err := r.db.QueryRow(ctx, query, conversationID, userID).Scan(
		&member.ID,
		&member.ConversationID,
		&member.UserID,
		&member.UnreadCount,
		&member.LastReadMessageID,
		&member.LastReadAt,
	)
	if err != nil {
		return nil, err
	}

	return &member, nil
}

func (r *ConversationRepository) ListMembers(ctx context.Context, conversationID string) ([]models.ConversationMember, error) {
	query := `
		SELECT id, conversation_id, user_id, unread_count, last_read_message_id, last_read_at
		FROM conversation_members
		WHERE conversation_id = $1
	`

	rows, err := r.db.Query(ctx, query, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := make([]models.ConversationMember, 0)
	for rows.Next() {
		var member models.ConversationMember
		if err := rows.Scan(
			&member.ID,
			&member.ConversationID,
			&member.UserID,
			&member.UnreadCount,
			&member.LastReadMessageID,
			&member.LastReadAt,
		); err != nil {
			return nil, err
		}
		members = append(members, member)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return members, nil
}

// ListMemberConversationIDs returns the ids of every conversation the user
// belongs to, used by the gateway to bulk-join rooms on connect.
func (r *ConversationRepository) ListMemberConversationIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.Query(ctx, `
		SELECT conversation_id
		FROM conversation_members
		WHERE user_id = $1
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return ids, nil
}

// ListSummaries returns the caller's conversation list ordered by recency,
// each row carrying the latest message preview and the caller's unread count.
// Other members are loaded in a second query and grouped in memory.
func (r *ConversationRepository) ListSummaries(ctx context.Context, userID string) ([]models.ConversationSummary, error) {
	query := `
		SELECT
			c.id,
			c.type,
			c.title,
			c.last_message_id,
			c.created_at,
			c.updated_at,
			cm.unread_count,
			lm.id,
			lm.body,
			lm.created_at
		FROM conversations c
		JOIN conversation_members cm ON cm.conversation_id = c.id AND cm.user_id = $1
		LEFT JOIN LATERAL (
			SELECT id, body, created_at
			FROM conversation_messages
			WHERE conversation_id = c.id
			ORDER BY created_at DESC, id DESC
			LIMIT 1
		) lm ON TRUE
		ORDER BY c.updated_at DESC, c.id DESC
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := make([]models.ConversationSummary, 0)
	conversationIDs := make([]string, 0)
	for rows.Next() {
		var summary models.ConversationSummary
		var messageID sql.NullString
		var messageBody *string
		var messageCreatedAt sql.NullTime

		if err := rows.Scan(
			&summary.ID,
			&summary.Type,
			&summary.Title,
			&summary.LastMessageID,
			&summary.CreatedAt,
			&summary.UpdatedAt,
			&summary.UnreadCount,
			&messageID,
			&messageBody,
			&messageCreatedAt,
		); err != nil {
			return nil, err
		}

		if messageID.Valid {
			summary.LastMessage = &models.MessagePreview{
				ID:        messageID.String,
				Body:      messageBody,
				CreatedAt: messageCreatedAt.Time,
			}
		}
		summary.OtherMembers = make([]models.UserSummary, 0)

		summaries = append(summaries, summary)
		conversationIDs = append(conversationIDs, summary.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(conversationIDs) == 0 {
		return summaries, nil
	}

	memberRows, err := r.db.Query(ctx, `
		SELECT cm.conversation_id, u.id, u.user_name, u.full_name, u.profile_picture
		FROM conversation_members cm
		JOIN users u ON u.id = cm.user_id
		WHERE cm.conversation_id = ANY($1) AND cm.user_id <> $2
	`, conversationIDs, userID)
	if err != nil {
		return nil, err
	}
	defer memberRows.Close()

	othersByConversation := make(map[string][]models.UserSummary)
	for memberRows.Next() {
		var conversationID string
		var member models.UserSummary
		if err := memberRows.Scan(
			&conversationID,
			&member.ID,
			&member.UserName,
			&member.FullName,
			&member.ProfilePicture,
		); err != nil {
			return nil, err
		}
		othersByConversation[conversationID] = append(othersByConversation[conversationID], member)
	}
	if err := memberRows.Err(); err != nil {
		return nil, err
	}

	for i := range summaries {
		if others, ok := othersByConversation[summaries[i].ID]; ok {
			summaries[i].OtherMembers = others
		}
	}

	return summaries, nil
}
