package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"messenger-service/internal/models"
)

type staticVerifier struct{ userID int }

func (v staticVerifier) Verify(string) (int, error) { return v.userID, nil }

// membershipStub answers like a database-backed checker: it fails the lookup
// when the caller's context is no longer live.
type membershipStub struct{ member bool }

func (m membershipStub) IsParticipant(ctx context.Context, chatID, userID int) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return m.member, nil
}

func dialGateway(t *testing.T, hub *Hub, membership MembershipChecker) *websocket.Conn {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gateway := NewGateway(hub, staticVerifier{userID: 1}, membership)
	router := gin.New()
	router.GET("/ws", gateway.Handle)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?token=x"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestGatewayJoinAfterHandshake(t *testing.T) {
	hub := NewHub()
	conn := dialGateway(t, hub, membershipStub{member: true})

	require.NoError(t, conn.WriteJSON(clientFrame{Type: frameJoin, ChatID: 7}))

	require.Eventually(t, func() bool {
		return hub.RoomSize(7) == 1
	}, 2*time.Second, 10*time.Millisecond, "expected connection to end up in the room")
}

func TestGatewayJoinRejectsNonMember(t *testing.T) {
	hub := NewHub()
	conn := dialGateway(t, hub, membershipStub{member: false})

	require.NoError(t, conn.WriteJSON(clientFrame{Type: frameJoin, ChatID: 7}))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var event models.ChatEvent
	require.NoError(t, json.Unmarshal(data, &event))
	require.Equal(t, models.EventError, event.Type)
	require.Equal(t, "not a chat member", event.Error)
	require.Equal(t, 0, hub.RoomSize(7))
}
