package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"messenger-service/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

// MessageRepository defines interactions for messages and attachment links.
type MessageRepository interface {
	CreateMessage(ctx context.Context, chatID, senderID int, content *string, replyToID *int, assetIDs []int) (models.Message, error)
	GetMessage(ctx context.Context, messageID int) (models.Message, error)
	ListMessages(ctx context.Context, chatID int) ([]models.Message, error)
	ListMessageAssets(ctx context.Context, messageIDs []int) ([]models.MessageAsset, error)
	EditMessage(ctx context.Context, messageID int, content string) (models.Message, error)
	SoftDeleteMessage(ctx context.Context, messageID int) error
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

const messageColumns = `id, chat_id, sender_id, content, reply_to_id, is_edited, deleted, created_at`

// CreateMessage persists the message, its attachment links in the given order
// and the chat's updated_at bump as a single transaction, so a partially
// written message is never observable.
func (r *MessageRepo) CreateMessage(ctx context.Context, chatID, senderID int, content *string, replyToID *int, assetIDs []int) (models.Message, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Message{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var msg models.Message
	if err = tx.QueryRowxContext(ctx,
		`INSERT INTO messages (chat_id, sender_id, content, reply_to_id) VALUES ($1, $2, $3, $4) RETURNING `+messageColumns,
		chatID, senderID, content, replyToID).StructScan(&msg); err != nil {
		return models.Message{}, err
	}

	for i, assetID := range assetIDs {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO message_assets (message_id, asset_id, order_index) VALUES ($1, $2, $3)`,
			msg.ID, assetID, i); err != nil {
			return models.Message{}, err
		}
	}

	if _, err = tx.ExecContext(ctx, `UPDATE chats SET updated_at = NOW() WHERE id=$1`, chatID); err != nil {
		return models.Message{}, err
	}

	err = tx.Commit()
	return msg, err
}

// GetMessage retrieves a single message.
func (r *MessageRepo) GetMessage(ctx context.Context, messageID int) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `SELECT `+messageColumns+` FROM messages WHERE id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// ListMessages returns chat messages in committed creation order. Deleted
// messages stay in the list as tombstones so replies keep their target.
func (r *MessageRepo) ListMessages(ctx context.Context, chatID int) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs,
		`SELECT `+messageColumns+` FROM messages WHERE chat_id=$1 ORDER BY created_at ASC, id ASC`, chatID)
	return msgs, err
}

// ListMessageAssets returns attachment links for the given messages ordered
// by their attachment position.
func (r *MessageRepo) ListMessageAssets(ctx context.Context, messageIDs []int) ([]models.MessageAsset, error) {
	if len(messageIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(
		`SELECT message_id, asset_id, order_index FROM message_assets WHERE message_id IN (?) ORDER BY message_id, order_index`, messageIDs)
	if err != nil {
		return nil, err
	}
	query = r.db.Rebind(query)

	var links []models.MessageAsset
	err = r.db.SelectContext(ctx, &links, query, args...)
	return links, err
}

// EditMessage replaces the content and flags the message as edited.
func (r *MessageRepo) EditMessage(ctx context.Context, messageID int, content string) (models.Message, error) {
	var msg models.Message
	err := r.db.QueryRowxContext(ctx,
		`UPDATE messages SET content=$2, is_edited=TRUE WHERE id=$1 RETURNING `+messageColumns,
		messageID, content).StructScan(&msg)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// SoftDeleteMessage flags the message as deleted; rows are never removed.
func (r *MessageRepo) SoftDeleteMessage(ctx context.Context, messageID int) error {
	res, err := r.db.ExecContext(ctx, `UPDATE messages SET deleted=TRUE WHERE id=$1`, messageID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrMessageNotFound
	}
	return nil
}
