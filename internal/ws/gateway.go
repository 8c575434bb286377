package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"messenger-service/internal/identity"
	"messenger-service/internal/models"
	"messenger-service/internal/observability"
)

// MembershipChecker is the gateway's only view of durable state: it verifies
// active membership before a connection may join a room.
type MembershipChecker interface {
	IsParticipant(ctx context.Context, chatID, userID int) (bool, error)
}

// Gateway handles the persistent client channel. A connection authenticates
// once at handshake, then drives join/leave/typing with JSON frames.
type Gateway struct {
	hub        *Hub
	verifier   identity.Verifier
	membership MembershipChecker
}

// NewGateway constructs a Gateway.
func NewGateway(hub *Hub, verifier identity.Verifier, membership MembershipChecker) *Gateway {
	return &Gateway{hub: hub, verifier: verifier, membership: membership}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Client frame types.
const (
	frameJoin        = "join"
	frameLeave       = "leave"
	frameTypingStart = "typing_start"
	frameTypingStop  = "typing_stop"
)

type clientFrame struct {
	Type   string `json:"type"`
	ChatID int    `json:"chat_id"`
}

// Handle authenticates and upgrades the connection, then serves its frames
// until it closes. A failed handshake never reaches a room.
func (g *Gateway) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("messenger-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token := bearerToken(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}
	userID, err := g.verifier.Verify(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      userID,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	client := g.hub.Register(conn, info)

	observability.IncWSActive()
	observability.IncWSEvent("ws_connect")
	g.publishLifecycle(ctx, info, "ws_connect", "")

	// The request context is canceled as soon as this handler returns, even
	// though the hijacked connection lives on. The read loop keeps the trace
	// values but must not inherit that cancellation.
	go g.readLoop(context.WithoutCancel(ctx), conn, client)
}

func (g *Gateway) readLoop(ctx context.Context, conn *websocket.Conn, client *Client) {
	info := client.Info()
	var closeReason string
	defer func() {
		g.hub.Disconnect(client)
		conn.Close()
		observability.DecWSActive()
		observability.IncWSEvent("ws_disconnect")
		g.publishLifecycle(ctx, info, "ws_disconnect", closeReason)
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent("ws_error")
				g.publishLifecycle(ctx, info, "ws_error", closeReason)
			}
			return
		}

		var frame clientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			g.sendError(client, 0, "malformed frame")
			continue
		}
		g.handleFrame(ctx, client, frame)
	}
}

func (g *Gateway) handleFrame(ctx context.Context, client *Client, frame clientFrame) {
	if frame.ChatID <= 0 {
		g.sendError(client, frame.ChatID, "invalid chat id")
		return
	}
	userID := client.Info().UserID

	switch frame.Type {
	case frameJoin:
		member, err := g.membership.IsParticipant(ctx, frame.ChatID, userID)
		if err != nil {
			log.Printf("ws membership check failed chat=%d user=%d: %v", frame.ChatID, userID, err)
			g.sendError(client, frame.ChatID, "join failed")
			return
		}
		if !member {
			g.sendError(client, frame.ChatID, "not a chat member")
			return
		}
		g.hub.Join(frame.ChatID, client)
	case frameLeave:
		g.hub.Leave(frame.ChatID, client)
	case frameTypingStart, frameTypingStop:
		if !g.hub.Joined(frame.ChatID, client) {
			g.sendError(client, frame.ChatID, "join the chat first")
			return
		}
		g.hub.BroadcastExcept(frame.ChatID, models.ChatEvent{
			Type:   models.EventTyping,
			ChatID: frame.ChatID,
			Typing: &models.TypingEvent{UserID: userID, Typing: frame.Type == frameTypingStart},
		}, client)
	default:
		g.sendError(client, frame.ChatID, fmt.Sprintf("unknown frame type %q", frame.Type))
	}
}

func (g *Gateway) sendError(client *Client, chatID int, reason string) {
	payload, err := json.Marshal(models.ChatEvent{Type: models.EventError, ChatID: chatID, Error: reason})
	if err != nil {
		return
	}
	_ = client.send(payload)
}

func (g *Gateway) publishLifecycle(ctx context.Context, info ConnInfo, event, reason string) {
	headers := observability.BuildHeaders(info.RequestID, info.TraceID)
	_ = observability.PublishEvent(ctx, "ws_events.chats", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		Payload:   observability.WSEventPayload(0, event, info.ConnID, info.UserID, info.DeviceID, info.IP, time.Since(info.ConnectedAt), reason),
	}, headers)
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
		return ""
	}
	return c.Query("token")
}
