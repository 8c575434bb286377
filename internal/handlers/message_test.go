package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"messenger-service/internal/mocks"
	"messenger-service/internal/models"
	"messenger-service/internal/service"
)

func setupMessageRouter(handler *MessageHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", 1)
		c.Next()
	})
	r.GET("/chats/:chat_id/messages", handler.GetMessages)
	r.POST("/chats/:chat_id/messages", handler.PostMessage)
	r.PATCH("/chats/:chat_id/messages/:message_id", handler.EditMessage)
	r.DELETE("/chats/:chat_id/messages/:message_id", handler.DeleteMessage)
	r.PUT("/chats/:chat_id/messages/:message_id/reactions/me", handler.SetReaction)
	r.DELETE("/chats/:chat_id/messages/:message_id/reactions/me", handler.RemoveReaction)
	return r
}

func TestGetMessagesSuccess(t *testing.T) {
	svc := new(mocks.ServiceMock)
	router := setupMessageRouter(NewMessageHandler(svc, nil))

	content := "hello"
	svc.On("Messages", mock.Anything, 3, 1).Return([]models.MessageView{
		{Message: models.Message{ID: 10, ChatID: 3, SenderID: 1, Content: &content}, SenderName: "alice"},
	}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/chats/3/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string][]models.MessageView
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp["messages"], 1)
	assert.Equal(t, "alice", resp["messages"][0].SenderName)
}

func TestGetMessagesHidesUnknownChat(t *testing.T) {
	svc := new(mocks.ServiceMock)
	router := setupMessageRouter(NewMessageHandler(svc, nil))

	svc.On("Messages", mock.Anything, 99, 1).Return(([]models.MessageView)(nil), service.ErrNotFound).Once()

	req := httptest.NewRequest(http.MethodGet, "/chats/99/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPostMessageSuccess(t *testing.T) {
	svc := new(mocks.ServiceMock)
	router := setupMessageRouter(NewMessageHandler(svc, nil))

	content := "hi"
	svc.On("SendMessage", mock.Anything, 3, 1, service.SendMessageInput{Content: "hi", AssetIDs: []int{40}}).
		Return(models.MessageView{Message: models.Message{ID: 11, ChatID: 3, SenderID: 1, Content: &content}}, nil).Once()

	body := bytes.NewBufferString(`{"content":"hi","asset_ids":[40]}`)
	req := httptest.NewRequest(http.MethodPost, "/chats/3/messages", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp models.MessageView
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 11, resp.ID)
	svc.AssertExpectations(t)
}

func TestPostMessageEmptyPayload(t *testing.T) {
	svc := new(mocks.ServiceMock)
	router := setupMessageRouter(NewMessageHandler(svc, nil))

	svc.On("SendMessage", mock.Anything, 3, 1, service.SendMessageInput{}).
		Return(models.MessageView{}, service.ErrBadRequest).Once()

	req := httptest.NewRequest(http.MethodPost, "/chats/3/messages", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPostMessageInvalidChatID(t *testing.T) {
	svc := new(mocks.ServiceMock)
	router := setupMessageRouter(NewMessageHandler(svc, nil))

	req := httptest.NewRequest(http.MethodPost, "/chats/abc/messages", bytes.NewBufferString(`{"content":"hi"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestEditMessageForbidden(t *testing.T) {
	svc := new(mocks.ServiceMock)
	router := setupMessageRouter(NewMessageHandler(svc, nil))

	svc.On("EditMessage", mock.Anything, 3, 11, 1, "edited").
		Return(models.MessageView{}, service.ErrForbidden).Once()

	req := httptest.NewRequest(http.MethodPatch, "/chats/3/messages/11", bytes.NewBufferString(`{"content":"edited"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDeleteMessageSuccess(t *testing.T) {
	svc := new(mocks.ServiceMock)
	router := setupMessageRouter(NewMessageHandler(svc, nil))

	svc.On("DeleteMessage", mock.Anything, 3, 11, 1).Return(nil).Once()

	req := httptest.NewRequest(http.MethodDelete, "/chats/3/messages/11", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	svc.AssertExpectations(t)
}

func TestSetReactionSuccess(t *testing.T) {
	svc := new(mocks.ServiceMock)
	router := setupMessageRouter(NewMessageHandler(svc, nil))

	svc.On("SetReaction", mock.Anything, 3, 11, 1, "👍").
		Return(models.ReactionEvent{MessageID: 11, UserID: 1, Change: models.ReactionAdded, Reaction: "👍"}, nil).Once()

	req := httptest.NewRequest(http.MethodPut, "/chats/3/messages/11/reactions/me", bytes.NewBufferString(`{"reaction":"👍"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp models.ReactionEvent
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, models.ReactionAdded, resp.Change)
}

func TestRemoveReactionSuccess(t *testing.T) {
	svc := new(mocks.ServiceMock)
	router := setupMessageRouter(NewMessageHandler(svc, nil))

	svc.On("RemoveReaction", mock.Anything, 3, 11, 1).Return(nil).Once()

	req := httptest.NewRequest(http.MethodDelete, "/chats/3/messages/11/reactions/me", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	svc.AssertExpectations(t)
}
