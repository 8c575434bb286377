package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"messenger-service/internal/service"
	"messenger-service/internal/telemetry"
)

// ChatHandler manages chat and participant endpoints.
type ChatHandler struct {
	svc   service.Service
	audit *telemetry.AuditEmitter
}

// NewChatHandler builds a ChatHandler.
func NewChatHandler(svc service.Service, audit *telemetry.AuditEmitter) *ChatHandler {
	return &ChatHandler{svc: svc, audit: audit}
}

// StartPrivateChat creates or returns the private chat with the named user.
func (h *ChatHandler) StartPrivateChat(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.emitAudit(c, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt("userID")
	chat, err := h.svc.CreatePrivateChat(c.Request.Context(), userID, req.Username)
	if err != nil {
		h.emitAudit(c, "ERROR", "could not start private chat")
		respondError(c, err)
		return
	}

	h.emitAudit(c, "INFO", "Private chat started")
	c.JSON(http.StatusOK, chat)
}

// CreateGroupChat handles POST /chats/group.
func (h *ChatHandler) CreateGroupChat(c *gin.Context) {
	var req struct {
		Name        string   `json:"name" binding:"required"`
		Description string   `json:"description"`
		Members     []string `json:"members"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.emitAudit(c, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt("userID")
	chat, err := h.svc.CreateGroupChat(c.Request.Context(), userID, req.Name, req.Description, req.Members)
	if err != nil {
		h.emitAudit(c, "ERROR", "could not create group chat")
		respondError(c, err)
		return
	}

	h.emitAudit(c, "INFO", "Group chat created")
	c.JSON(http.StatusCreated, chat)
}

// ListChats returns the chats visible to the authenticated user.
func (h *ChatHandler) ListChats(c *gin.Context) {
	userID := c.GetInt("userID")

	chats, err := h.svc.ListChats(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"chats": chats})
}

// UpdateChat patches group metadata. Admin only.
func (h *ChatHandler) UpdateChat(c *gin.Context) {
	chatID, ok := parseChatID(c)
	if !ok {
		return
	}

	var req struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.emitAudit(c, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt("userID")
	chat, err := h.svc.UpdateGroupChat(c.Request.Context(), chatID, userID, service.GroupPatch{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		h.emitAudit(c, "ERROR", "could not update chat")
		respondError(c, err)
		return
	}

	h.emitAudit(c, "INFO", "Chat updated")
	c.JSON(http.StatusOK, chat)
}

// ListParticipants returns the chat roster for members.
func (h *ChatHandler) ListParticipants(c *gin.Context) {
	chatID, ok := parseChatID(c)
	if !ok {
		return
	}

	userID := c.GetInt("userID")
	participants, err := h.svc.ListParticipants(c.Request.Context(), chatID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"participants": participants})
}

// AddParticipant adds a user to a group chat. Admin only.
func (h *ChatHandler) AddParticipant(c *gin.Context) {
	chatID, ok := parseChatID(c)
	if !ok {
		return
	}

	var req struct {
		Username string `json:"username" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.emitAudit(c, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt("userID")
	participant, err := h.svc.AddParticipant(c.Request.Context(), chatID, userID, req.Username)
	if err != nil {
		h.emitAudit(c, "ERROR", "could not add participant")
		respondError(c, err)
		return
	}

	h.emitAudit(c, "INFO", "Participant added")
	c.JSON(http.StatusCreated, participant)
}

// RemoveParticipant kicks a member from a group chat. Admin only.
func (h *ChatHandler) RemoveParticipant(c *gin.Context) {
	chatID, ok := parseChatID(c)
	if !ok {
		return
	}
	targetID, err := strconv.Atoi(c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	userID := c.GetInt("userID")
	if err := h.svc.RemoveParticipant(c.Request.Context(), chatID, userID, targetID); err != nil {
		h.emitAudit(c, "ERROR", "could not remove participant")
		respondError(c, err)
		return
	}

	h.emitAudit(c, "INFO", "Participant removed")
	c.Status(http.StatusNoContent)
}

// LeaveChat removes the caller from the chat.
func (h *ChatHandler) LeaveChat(c *gin.Context) {
	chatID, ok := parseChatID(c)
	if !ok {
		return
	}

	userID := c.GetInt("userID")
	if err := h.svc.LeaveChat(c.Request.Context(), chatID, userID); err != nil {
		h.emitAudit(c, "ERROR", "could not leave chat")
		respondError(c, err)
		return
	}

	h.emitAudit(c, "INFO", "Left chat")
	c.Status(http.StatusNoContent)
}

func (h *ChatHandler) emitAudit(c *gin.Context, level, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), userIDFromContext(c))
}

func parseChatID(c *gin.Context) (int, bool) {
	chatID, err := strconv.Atoi(c.Param("chat_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat id"})
		return 0, false
	}
	return chatID, true
}

func parseIDs(c *gin.Context) (int, int, bool) {
	chatID, ok := parseChatID(c)
	if !ok {
		return 0, 0, false
	}
	msgID, err := strconv.Atoi(c.Param("message_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return 0, 0, false
	}
	return chatID, msgID, true
}

// respondError translates service error kinds into HTTP statuses. Internal
// details stay in the logs, never in the response body.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrBadRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrUnavailable):
		log.Printf("request failed: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "temporarily unavailable"})
	default:
		log.Printf("request failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
