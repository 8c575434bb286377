package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"messenger-service/internal/models"
)

// ReactionRepository defines interactions for message reactions.
type ReactionRepository interface {
	SetReaction(ctx context.Context, messageID, userID int, reaction string) (string, error)
	RemoveReaction(ctx context.Context, messageID, userID int) (bool, error)
	ListReactions(ctx context.Context, messageIDs []int) ([]models.Reaction, error)
}

// ReactionRepo is a sqlx-backed implementation.
type ReactionRepo struct {
	db *sqlx.DB
}

// NewReactionRepo constructs a ReactionRepo.
func NewReactionRepo(db *sqlx.DB) *ReactionRepo {
	return &ReactionRepo{db: db}
}

// SetReaction upserts the user's reaction on a message. At most one reaction
// row exists per (message, user); a second set replaces the first. Returns
// whether the reaction was added or updated.
func (r *ReactionRepo) SetReaction(ctx context.Context, messageID, userID int, reaction string) (string, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var existing string
	err = tx.GetContext(ctx, &existing,
		`SELECT reaction FROM reactions WHERE message_id=$1 AND user_id=$2 FOR UPDATE`, messageID, userID)

	change := models.ReactionUpdated
	switch {
	case errors.Is(err, sql.ErrNoRows):
		change = models.ReactionAdded
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO reactions (message_id, user_id, reaction) VALUES ($1, $2, $3)
             ON CONFLICT (message_id, user_id) DO UPDATE SET reaction = EXCLUDED.reaction`,
			messageID, userID, reaction); err != nil {
			return "", err
		}
	case err != nil:
		return "", err
	default:
		if _, err = tx.ExecContext(ctx,
			`UPDATE reactions SET reaction=$3 WHERE message_id=$1 AND user_id=$2`,
			messageID, userID, reaction); err != nil {
			return "", err
		}
	}

	err = tx.Commit()
	return change, err
}

// RemoveReaction deletes the user's reaction and reports whether one existed.
func (r *ReactionRepo) RemoveReaction(ctx context.Context, messageID, userID int) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM reactions WHERE message_id=$1 AND user_id=$2`, messageID, userID)
	if err != nil {
		return false, err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListReactions returns reactions for the given messages.
func (r *ReactionRepo) ListReactions(ctx context.Context, messageIDs []int) ([]models.Reaction, error) {
	if len(messageIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(
		`SELECT message_id, user_id, reaction, created_at FROM reactions WHERE message_id IN (?) ORDER BY message_id, created_at`, messageIDs)
	if err != nil {
		return nil, err
	}
	query = r.db.Rebind(query)

	var reactions []models.Reaction
	err = r.db.SelectContext(ctx, &reactions, query, args...)
	return reactions, err
}
