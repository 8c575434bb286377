// Package delivery connects committed writes to realtime fan-out. The
// conversation manager calls the coordinator only after a transaction commits,
// so room broadcasts always follow persistence order. Fan-out failures are
// absorbed here: a committed message is never unwound because a socket was
// slow, and clients recover missed events from the history endpoint.
package delivery

import (
	"messenger-service/internal/models"
	"messenger-service/internal/observability"
)

// Broadcaster fans one event out to a chat's room.
type Broadcaster interface {
	Broadcast(chatID int, event models.ChatEvent)
}

// Coordinator implements the service's notifier over a Broadcaster.
type Coordinator struct {
	bus Broadcaster
}

// NewCoordinator constructs a Coordinator.
func NewCoordinator(bus Broadcaster) *Coordinator {
	return &Coordinator{bus: bus}
}

// MessageCreated broadcasts a freshly committed message. The payload is the
// exact view returned to the author.
func (c *Coordinator) MessageCreated(chatID int, msg models.MessageView) {
	c.publish(models.ChatEvent{Type: models.EventMessage, ChatID: chatID, Message: &msg})
}

// MessageUpdated broadcasts an edited message.
func (c *Coordinator) MessageUpdated(chatID int, msg models.MessageView) {
	c.publish(models.ChatEvent{Type: models.EventMessageUpdated, ChatID: chatID, Message: &msg})
}

// MessageDeleted broadcasts a soft deletion by message id.
func (c *Coordinator) MessageDeleted(chatID int, messageID int) {
	c.publish(models.ChatEvent{Type: models.EventMessageDeleted, ChatID: chatID, MessageID: messageID})
}

// ReactionChanged broadcasts a reaction tri-state change.
func (c *Coordinator) ReactionChanged(chatID int, event models.ReactionEvent) {
	c.publish(models.ChatEvent{Type: models.EventReaction, ChatID: chatID, Reaction: &event})
}

func (c *Coordinator) publish(event models.ChatEvent) {
	observability.IncBroadcast(event.Type)
	c.bus.Broadcast(event.ChatID, event)
}
