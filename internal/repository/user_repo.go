package repository

import (
	"context"

	"github.com/NamanGajera/Pictora-Backend/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxBeginner is satisfied by *pgxpool.Pool and is required by repository
// methods that run several statements in one transaction.
type TxBeginner interface {
	DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}

type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetSummary(ctx context.Context, userID string) (*models.UserSummary, error) {
	query := `
		SELECT id, user_name, full_name, profile_picture
		FROM users
		WHERE id = $1
	`

	var summary models.UserSummary
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&summary.ID,
		&summary.UserName,
		&summary.FullName,
		&summary.ProfilePicture,
	)
	if err != nil {
		return nil, err
	}

	return &summary, nil
}

func (r *UserRepository) GetSummaries(ctx context.Context, userIDs []string) (map[string]models.UserSummary, error) {
	summaries := make(map[string]models.UserSummary, len(userIDs))
	if len(userIDs) == 0 {
		return summaries, nil
	}

	query := `
		SELECT id, user_name, full_name, profile_picture
		FROM users
		WHERE id = ANY($1)
	`

	rows, err := r.db.Query(ctx, query, userIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var summary models.UserSummary
		if err := rows.Scan(
			&summary.ID,
			&summary.UserName,
			&summary.FullName,
			&summary.ProfilePicture,
		); err != nil {
			return nil, err
		}
		summaries[summary.ID] = summary
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return summaries, nil
}
