package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"messenger-service/internal/models"
	"messenger-service/internal/observability"
)

const writeTimeout = 5 * time.Second

// Client is one registered websocket connection. Writes are serialized so
// concurrent broadcasts never interleave frames on the same socket.
type Client struct {
	conn    *websocket.Conn
	info    ConnInfo
	writeMu sync.Mutex
}

// Info returns the connection metadata.
func (c *Client) Info() ConnInfo {
	return c.info
}

func (c *Client) send(payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.conn == nil {
		return nil
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

func (c *Client) close() {
	if c.conn != nil {
		c.conn.Close()
	}
}

// Hub is the in-memory room registry: chat id to the set of live connections.
// It owns no durable state and is rebuilt empty on every process start.
type Hub struct {
	mu    sync.RWMutex
	rooms map[int]map[*Client]bool
	joins map[*Client]map[int]bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		rooms: make(map[int]map[*Client]bool),
		joins: make(map[*Client]map[int]bool),
	}
}

// Register wraps an upgraded connection into a Client.
func (h *Hub) Register(conn *websocket.Conn, info ConnInfo) *Client {
	return &Client{conn: conn, info: info}
}

// Join adds the client to a chat's room.
func (h *Hub) Join(chatID int, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[chatID]; !ok {
		h.rooms[chatID] = make(map[*Client]bool)
	}
	h.rooms[chatID][client] = true
	if _, ok := h.joins[client]; !ok {
		h.joins[client] = make(map[int]bool)
	}
	h.joins[client][chatID] = true
}

// Leave removes the client from a chat's room. Idempotent.
func (h *Hub) Leave(chatID int, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(chatID, client)
}

func (h *Hub) leaveLocked(chatID int, client *Client) {
	if clients, ok := h.rooms[chatID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.rooms, chatID)
		}
	}
	if chats, ok := h.joins[client]; ok {
		delete(chats, chatID)
		if len(chats) == 0 {
			delete(h.joins, client)
		}
	}
}

// Disconnect removes the client from every joined room.
func (h *Hub) Disconnect(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for chatID := range h.joins[client] {
		h.leaveLocked(chatID, client)
	}
}

// Joined reports whether the client currently belongs to the chat's room.
func (h *Hub) Joined(chatID int, client *Client) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rooms[chatID][client]
}

// RoomSize returns the number of connections in a chat's room.
func (h *Hub) RoomSize(chatID int) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[chatID])
}

// Broadcast delivers the event to every connection currently joined to the
// chat's room. A failed write evicts the connection; nothing is retried or
// replayed for late joiners.
func (h *Hub) Broadcast(chatID int, event models.ChatEvent) {
	h.deliver(chatID, event, nil)
}

// BroadcastExcept is Broadcast minus one connection, used for typing relays
// so the originating socket does not echo back to itself.
func (h *Hub) BroadcastExcept(chatID int, event models.ChatEvent, skip *Client) {
	h.deliver(chatID, event, skip)
}

func (h *Hub) deliver(chatID int, event models.ChatEvent, skip *Client) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.rooms[chatID]))
	for client := range h.rooms[chatID] {
		if client != skip {
			clients = append(clients, client)
		}
	}
	h.mu.RUnlock()

	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("event marshal error: %v", err)
		return
	}

	for _, client := range clients {
		if err := client.send(payload); err != nil {
			log.Printf("websocket write error: %v", err)
			client.close()
			h.Disconnect(client)
			h.publishWSError(chatID, client, err)
			observability.IncBroadcastError(event.Type)
		}
	}
}

func (h *Hub) publishWSError(chatID int, client *Client, err error) {
	info := client.info
	headers := observability.BuildHeaders(info.RequestID, info.TraceID)
	_ = observability.PublishEvent(context.Background(), "ws_events.chats", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_error",
		Payload:   observability.WSEventPayload(chatID, "ws_error", info.ConnID, info.UserID, info.DeviceID, info.IP, time.Since(info.ConnectedAt), err.Error()),
	}, headers)
	observability.IncWSEvent("ws_error")
}
