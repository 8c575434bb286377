package models

import "time"

// Reaction change outcomes.
const (
	ReactionAdded   = "added"
	ReactionUpdated = "updated"
	ReactionRemoved = "removed"
)

// Reaction is one reaction string per (message, user). Setting a new value
// replaces the prior one.
type Reaction struct {
	MessageID int       `db:"message_id" json:"message_id"`
	UserID    int       `db:"user_id" json:"user_id"`
	Reaction  string    `db:"reaction" json:"reaction"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
