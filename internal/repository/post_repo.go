package repository

import (
	"context"

	"github.com/NamanGajera/Pictora-Backend/internal/models"
)

type PostRepository struct {
	db DBTX
}

func NewPostRepository(db DBTX) *PostRepository {
	return &PostRepository{db: db}
}

// GetSnapshot returns the display copy of a post shared into a conversation,
// or pgx.ErrNoRows when the post no longer exists.
func (r *PostRepository) GetSnapshot(ctx context.Context, postID string) (*models.PostSnapshot, error) {
	query := `
		SELECT
			p.id, p.user_id, p.caption, p.like_count, p.comment_count, p.created_at,
			u.id, u.user_name, u.full_name, u.profile_picture
		FROM posts p
		JOIN users u ON u.id = p.user_id
		WHERE p.id = $1
	`

	var snapshot models.PostSnapshot
	var author models.UserSummary
	err := r.db.QueryRow(ctx, query, postID).Scan(
		&snapshot.ID,
		&snapshot.UserID,
		&snapshot.Caption,
		&snapshot.LikeCount,
		&snapshot.CommentCount,
		&snapshot.CreatedAt,
		&author.ID,
		&author.UserName,
		&author.FullName,
		&author.ProfilePicture,
	)
	if err != nil {
		return nil, err
	}
	snapshot.Author = &author

	return &snapshot, nil
}
