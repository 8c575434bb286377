package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"messenger-service/internal/models"
)

var (
	ErrChatNotFound       = errors.New("chat not found")
	ErrNotParticipant     = errors.New("not a chat participant")
	ErrAlreadyParticipant = errors.New("already a chat participant")
)

// ChatListRow is one row of the chat list query: the chat, the peer for
// private chats and the latest message if any.
type ChatListRow struct {
	models.Chat
	PeerID        *int         `db:"peer_id"`
	LastMessageID *int         `db:"last_message_id"`
	LastSenderID  *int         `db:"last_sender_id"`
	LastContent   *string      `db:"last_content"`
	LastDeleted   *bool        `db:"last_deleted"`
	LastCreatedAt sql.NullTime `db:"last_created_at"`
}

// LeaveResult reports what a leave operation did beyond removing the row.
type LeaveResult struct {
	ChatDeleted bool
	NewAdminID  *int
}

// ChatRepository abstracts chat and membership persistence.
type ChatRepository interface {
	CreatePrivateChat(ctx context.Context, userID, peerID int) (models.Chat, bool, error)
	CreateGroupChat(ctx context.Context, creatorID int, name, description string, memberIDs []int) (models.Chat, error)
	GetChat(ctx context.Context, chatID int) (models.Chat, error)
	UpdateGroup(ctx context.Context, chatID int, name, description *string) error
	IsParticipant(ctx context.Context, chatID, userID int) (bool, error)
	GetParticipant(ctx context.Context, chatID, userID int) (models.ChatParticipant, error)
	ListParticipants(ctx context.Context, chatID int) ([]models.ChatParticipant, error)
	AddParticipant(ctx context.Context, chatID, userID int, role string) error
	RemoveParticipant(ctx context.Context, chatID, userID int) error
	LeaveChat(ctx context.Context, chatID, userID int) (LeaveResult, error)
	ListChatsForUser(ctx context.Context, userID int) ([]ChatListRow, error)
}

// ChatRepo is a sqlx implementation of ChatRepository.
type ChatRepo struct {
	db *sqlx.DB
}

// NewChatRepo constructs a ChatRepo.
func NewChatRepo(db *sqlx.DB) *ChatRepo {
	return &ChatRepo{db: db}
}

// PairKey canonicalizes an unordered user pair for the private-chat
// uniqueness constraint.
func PairKey(a, b int) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d:%d", a, b)
}

// CreatePrivateChat returns the private chat between the two users, creating
// it when absent. The second result reports whether a new chat was created.
// Concurrent creates for the same pair are resolved by the unique index on
// pair_key: the loser re-reads the winner's row.
func (r *ChatRepo) CreatePrivateChat(ctx context.Context, userID, peerID int) (models.Chat, bool, error) {
	key := PairKey(userID, peerID)

	chat, err := r.getByPairKey(ctx, key)
	if err == nil {
		return chat, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.Chat{}, false, err
	}

	chat, err = r.insertPrivateChat(ctx, key, userID, peerID)
	if err != nil {
		if isUniqueViolation(err) {
			chat, err = r.getByPairKey(ctx, key)
			return chat, false, err
		}
		return models.Chat{}, false, err
	}
	return chat, true, nil
}

func (r *ChatRepo) getByPairKey(ctx context.Context, key string) (models.Chat, error) {
	var chat models.Chat
	err := r.db.GetContext(ctx, &chat,
		`SELECT id, kind, name, description, pair_key, created_at, updated_at FROM chats WHERE pair_key=$1`, key)
	return chat, err
}

func (r *ChatRepo) insertPrivateChat(ctx context.Context, key string, userID, peerID int) (models.Chat, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Chat{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var chat models.Chat
	if err = tx.QueryRowxContext(ctx,
		`INSERT INTO chats (kind, pair_key) VALUES ($1, $2) RETURNING id, kind, name, description, pair_key, created_at, updated_at`,
		models.ChatKindPrivate, key).StructScan(&chat); err != nil {
		return models.Chat{}, err
	}

	for _, id := range []int{userID, peerID} {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO chat_participants (chat_id, user_id, role) VALUES ($1, $2, $3)`,
			chat.ID, id, models.RoleMember); err != nil {
			return models.Chat{}, err
		}
	}

	err = tx.Commit()
	return chat, err
}

// CreateGroupChat creates a group and its memberships atomically. The creator
// becomes admin; members are deduplicated.
func (r *ChatRepo) CreateGroupChat(ctx context.Context, creatorID int, name, description string, memberIDs []int) (models.Chat, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Chat{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var chat models.Chat
	if err = tx.QueryRowxContext(ctx,
		`INSERT INTO chats (kind, name, description) VALUES ($1, $2, $3) RETURNING id, kind, name, description, pair_key, created_at, updated_at`,
		models.ChatKindGroup, name, description).StructScan(&chat); err != nil {
		return models.Chat{}, err
	}

	memberSet := map[int]struct{}{}
	for _, id := range memberIDs {
		if id != creatorID {
			memberSet[id] = struct{}{}
		}
	}
	ids := make([]int, 0, len(memberSet))
	for id := range memberSet {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO chat_participants (chat_id, user_id, role) VALUES ($1, $2, $3)`,
		chat.ID, creatorID, models.RoleAdmin); err != nil {
		return models.Chat{}, err
	}
	for _, id := range ids {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO chat_participants (chat_id, user_id, role) VALUES ($1, $2, $3)`,
			chat.ID, id, models.RoleMember); err != nil {
			return models.Chat{}, err
		}
	}

	err = tx.Commit()
	return chat, err
}

// GetChat fetches a chat by id.
func (r *ChatRepo) GetChat(ctx context.Context, chatID int) (models.Chat, error) {
	var chat models.Chat
	err := r.db.GetContext(ctx, &chat,
		`SELECT id, kind, name, description, pair_key, created_at, updated_at FROM chats WHERE id=$1`, chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Chat{}, ErrChatNotFound
	}
	return chat, err
}

// UpdateGroup patches group metadata. Nil fields are left unchanged.
func (r *ChatRepo) UpdateGroup(ctx context.Context, chatID int, name, description *string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE chats SET name = COALESCE($2, name), description = COALESCE($3, description) WHERE id=$1`,
		chatID, name, description)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrChatNotFound
	}
	return nil
}

// IsParticipant checks whether a user belongs to the chat.
func (r *ChatRepo) IsParticipant(ctx context.Context, chatID, userID int) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM chat_participants WHERE chat_id=$1 AND user_id=$2)`, chatID, userID)
	return exists, err
}

// GetParticipant returns the membership row for a user.
func (r *ChatRepo) GetParticipant(ctx context.Context, chatID, userID int) (models.ChatParticipant, error) {
	var p models.ChatParticipant
	err := r.db.GetContext(ctx, &p,
		`SELECT chat_id, user_id, role, joined_at FROM chat_participants WHERE chat_id=$1 AND user_id=$2`, chatID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ChatParticipant{}, ErrNotParticipant
	}
	return p, err
}

// ListParticipants returns all memberships of a chat in join order.
func (r *ChatRepo) ListParticipants(ctx context.Context, chatID int) ([]models.ChatParticipant, error) {
	var list []models.ChatParticipant
	err := r.db.SelectContext(ctx, &list,
		`SELECT chat_id, user_id, role, joined_at FROM chat_participants WHERE chat_id=$1 ORDER BY joined_at ASC, user_id ASC`, chatID)
	return list, err
}

// AddParticipant inserts a membership row.
func (r *ChatRepo) AddParticipant(ctx context.Context, chatID, userID int, role string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO chat_participants (chat_id, user_id, role) VALUES ($1, $2, $3)`, chatID, userID, role)
	if isUniqueViolation(err) {
		return ErrAlreadyParticipant
	}
	return err
}

// RemoveParticipant deletes a membership row.
func (r *ChatRepo) RemoveParticipant(ctx context.Context, chatID, userID int) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM chat_participants WHERE chat_id=$1 AND user_id=$2`, chatID, userID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrNotParticipant
	}
	return nil
}

// LeaveChat removes the caller's membership in one transaction. When the
// caller was the last member the chat is deleted outright. When a departing
// admin leaves other members behind and no admin remains, the member with the
// earliest join (ties broken by user id) is promoted, so a non-empty group
// never ends adminless.
func (r *ChatRepo) LeaveChat(ctx context.Context, chatID, userID int) (LeaveResult, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return LeaveResult{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var role string
	err = tx.QueryRowxContext(ctx,
		`DELETE FROM chat_participants WHERE chat_id=$1 AND user_id=$2 RETURNING role`, chatID, userID).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return LeaveResult{}, ErrNotParticipant
	}
	if err != nil {
		return LeaveResult{}, err
	}

	var remaining int
	if err = tx.GetContext(ctx, &remaining,
		`SELECT COUNT(*) FROM chat_participants WHERE chat_id=$1`, chatID); err != nil {
		return LeaveResult{}, err
	}

	result := LeaveResult{}
	if remaining == 0 {
		if _, err = tx.ExecContext(ctx, `DELETE FROM chats WHERE id=$1`, chatID); err != nil {
			return LeaveResult{}, err
		}
		result.ChatDeleted = true
	} else if role == models.RoleAdmin {
		var admins int
		if err = tx.GetContext(ctx, &admins,
			`SELECT COUNT(*) FROM chat_participants WHERE chat_id=$1 AND role=$2`, chatID, models.RoleAdmin); err != nil {
			return LeaveResult{}, err
		}
		if admins == 0 {
			var successor int
			if err = tx.GetContext(ctx, &successor,
				`SELECT user_id FROM chat_participants WHERE chat_id=$1 ORDER BY joined_at ASC, user_id ASC LIMIT 1`, chatID); err != nil {
				return LeaveResult{}, err
			}
			if _, err = tx.ExecContext(ctx,
				`UPDATE chat_participants SET role=$3 WHERE chat_id=$1 AND user_id=$2`,
				chatID, successor, models.RoleAdmin); err != nil {
				return LeaveResult{}, err
			}
			result.NewAdminID = &successor
		}
	}

	err = tx.Commit()
	return result, err
}

// ListChatsForUser returns the user's chats ordered by recency, each with the
// latest message and, for private chats, the other participant.
func (r *ChatRepo) ListChatsForUser(ctx context.Context, userID int) ([]ChatListRow, error) {
	query := `SELECT c.id, c.kind, c.name, c.description, c.pair_key, c.created_at, c.updated_at,
            peer.user_id AS peer_id,
            m.id AS last_message_id, m.sender_id AS last_sender_id, m.content AS last_content,
            m.deleted AS last_deleted, m.created_at AS last_created_at
        FROM chats c
        INNER JOIN chat_participants cp ON cp.chat_id = c.id AND cp.user_id = $1
        LEFT JOIN chat_participants peer ON peer.chat_id = c.id AND peer.user_id <> $1 AND c.kind = 'private'
        LEFT JOIN LATERAL (
            SELECT id, sender_id, content, deleted, created_at FROM messages
            WHERE chat_id = c.id ORDER BY created_at DESC, id DESC LIMIT 1
        ) m ON TRUE
        ORDER BY c.updated_at DESC`

	var rows []ChatListRow
	err := r.db.SelectContext(ctx, &rows, query, userID)
	return rows, err
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
