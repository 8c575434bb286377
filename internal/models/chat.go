package models

import "time"

// Chat kinds.
const (
	ChatKindPrivate = "private"
	ChatKindGroup   = "group"
)

// Participant roles. Roles only carry meaning in group chats.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// Chat represents a private (two-party) or group conversation.
type Chat struct {
	ID          int       `db:"id" json:"id"`
	Kind        string    `db:"kind" json:"kind"`
	Name        string    `db:"name" json:"name,omitempty"`
	Description string    `db:"description" json:"description,omitempty"`
	PairKey     *string   `db:"pair_key" json:"-"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// ChatParticipant links a user to a chat.
type ChatParticipant struct {
	ChatID   int       `db:"chat_id" json:"chat_id"`
	UserID   int       `db:"user_id" json:"user_id"`
	Role     string    `db:"role" json:"role"`
	JoinedAt time.Time `db:"joined_at" json:"joined_at"`
}

// ChatSummary is the list-view shape of a chat for one user: the chat row
// annotated with its most recent message and, for private chats, the peer.
type ChatSummary struct {
	Chat
	PeerID      int      `json:"peer_id,omitempty"`
	PeerName    string   `json:"peer_name,omitempty"`
	LastMessage *Message `json:"last_message,omitempty"`
}
