package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"messenger-service/internal/service"
	"messenger-service/internal/telemetry"
)

// MessageHandler manages message and reaction endpoints.
type MessageHandler struct {
	svc   service.Service
	audit *telemetry.AuditEmitter
}

// NewMessageHandler builds a MessageHandler.
func NewMessageHandler(svc service.Service, audit *telemetry.AuditEmitter) *MessageHandler {
	return &MessageHandler{svc: svc, audit: audit}
}

// GetMessages returns the chat history for members.
func (h *MessageHandler) GetMessages(c *gin.Context) {
	chatID, ok := parseChatID(c)
	if !ok {
		return
	}

	userID := c.GetInt("userID")
	msgs, err := h.svc.Messages(c.Request.Context(), chatID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// PostMessage stores a message and broadcasts it after commit.
func (h *MessageHandler) PostMessage(c *gin.Context) {
	chatID, ok := parseChatID(c)
	if !ok {
		return
	}

	var req struct {
		Content   string `json:"content"`
		ReplyToID *int   `json:"reply_to_id"`
		AssetIDs  []int  `json:"asset_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.emitAudit(c, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt("userID")
	msg, err := h.svc.SendMessage(c.Request.Context(), chatID, userID, service.SendMessageInput{
		Content:   req.Content,
		ReplyToID: req.ReplyToID,
		AssetIDs:  req.AssetIDs,
	})
	if err != nil {
		h.emitAudit(c, "ERROR", "could not store message")
		respondError(c, err)
		return
	}

	h.emitAudit(c, "INFO", "Message sent")
	c.JSON(http.StatusCreated, msg)
}

// EditMessage replaces a message's content. Sender only.
func (h *MessageHandler) EditMessage(c *gin.Context) {
	chatID, messageID, ok := parseIDs(c)
	if !ok {
		return
	}

	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.emitAudit(c, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt("userID")
	msg, err := h.svc.EditMessage(c.Request.Context(), chatID, messageID, userID, req.Content)
	if err != nil {
		h.emitAudit(c, "ERROR", "could not edit message")
		respondError(c, err)
		return
	}

	h.emitAudit(c, "INFO", "Message edited")
	c.JSON(http.StatusOK, msg)
}

// DeleteMessage soft-deletes a message for everyone. Sender only.
func (h *MessageHandler) DeleteMessage(c *gin.Context) {
	chatID, messageID, ok := parseIDs(c)
	if !ok {
		return
	}

	userID := c.GetInt("userID")
	if err := h.svc.DeleteMessage(c.Request.Context(), chatID, messageID, userID); err != nil {
		h.emitAudit(c, "ERROR", "could not delete message")
		respondError(c, err)
		return
	}

	h.emitAudit(c, "INFO", "Message deleted")
	c.Status(http.StatusNoContent)
}

// SetReaction upserts the caller's reaction on a message.
func (h *MessageHandler) SetReaction(c *gin.Context) {
	chatID, messageID, ok := parseIDs(c)
	if !ok {
		return
	}

	var req struct {
		Reaction string `json:"reaction" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.emitAudit(c, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt("userID")
	event, err := h.svc.SetReaction(c.Request.Context(), chatID, messageID, userID, req.Reaction)
	if err != nil {
		h.emitAudit(c, "ERROR", "could not set reaction")
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, event)
}

// RemoveReaction clears the caller's reaction on a message.
func (h *MessageHandler) RemoveReaction(c *gin.Context) {
	chatID, messageID, ok := parseIDs(c)
	if !ok {
		return
	}

	userID := c.GetInt("userID")
	if err := h.svc.RemoveReaction(c.Request.Context(), chatID, messageID, userID); err != nil {
		h.emitAudit(c, "ERROR", "could not remove reaction")
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *MessageHandler) emitAudit(c *gin.Context, level, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), userIDFromContext(c))
}
