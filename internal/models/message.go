package models

import "time"

// Message represents a persisted chat message. Content is nullable so a
// message may carry attachments only. Messages are soft deleted.
type Message struct {
	ID        int       `db:"id" json:"id"`
	ChatID    int       `db:"chat_id" json:"chat_id"`
	SenderID  int       `db:"sender_id" json:"sender_id"`
	Content   *string   `db:"content" json:"content,omitempty"`
	ReplyToID *int      `db:"reply_to_id" json:"reply_to_id,omitempty"`
	IsEdited  bool      `db:"is_edited" json:"is_edited"`
	Deleted   bool      `db:"deleted" json:"deleted"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// MessageAsset links a message to an uploaded asset, keeping attachment order.
type MessageAsset struct {
	MessageID  int `db:"message_id" json:"message_id"`
	AssetID    int `db:"asset_id" json:"asset_id"`
	OrderIndex int `db:"order_index" json:"order_index"`
}

// AssetView is attachment metadata resolved from the asset store.
type AssetView struct {
	ID       int    `json:"id"`
	URL      string `json:"url,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	FileName string `json:"file_name,omitempty"`
	Size     int64  `json:"size,omitempty"`
}

// MessageView is the fully hydrated message shape returned to the author and
// broadcast to the room. The broadcast payload is this exact value; the
// gateway never rebuilds it.
type MessageView struct {
	Message
	SenderName string      `json:"sender_name,omitempty"`
	Assets     []AssetView `json:"assets,omitempty"`
	Reactions  []Reaction  `json:"reactions,omitempty"`
}
