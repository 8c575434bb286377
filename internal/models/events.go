package models

// Websocket event types pushed by the server.
const (
	EventMessage        = "message"
	EventMessageUpdated = "message_updated"
	EventMessageDeleted = "message_deleted"
	EventReaction       = "reaction"
	EventTyping         = "typing"
	EventError          = "error"
)

// ReactionEvent describes one reaction change on a message so clients can
// patch a single message without refetching history.
type ReactionEvent struct {
	MessageID int    `json:"message_id"`
	UserID    int    `json:"user_id"`
	Change    string `json:"change"`
	Reaction  string `json:"reaction,omitempty"`
}

// TypingEvent is an ephemeral typing indicator. It is never persisted;
// receivers expire indicators locally if no stop event arrives.
type TypingEvent struct {
	UserID int  `json:"user_id"`
	Typing bool `json:"typing"`
}

// ChatEvent is the envelope broadcast to every connection joined to a chat's
// room. Exactly one of the payload fields is set depending on Type.
type ChatEvent struct {
	Type      string         `json:"type"`
	ChatID    int            `json:"chat_id"`
	Message   *MessageView   `json:"message,omitempty"`
	MessageID int            `json:"message_id,omitempty"`
	Reaction  *ReactionEvent `json:"reaction,omitempty"`
	Typing    *TypingEvent   `json:"typing,omitempty"`
	Error     string         `json:"error,omitempty"`
}
