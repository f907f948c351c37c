package handlers

import (
	"net/http"
	"strconv"

	"github.com/fazendassa/crm-fazendas-sa-sub002/internal/models"
	"github.com/fazendassa/crm-fazendas-sa-sub002/pkg/logger"
	"github.com/fazendassa/crm-fazendas-sa-sub002/pkg/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// MessageHandler handles outbound sends and message history reads
type MessageHandler struct {
	messageService MessageServiceInterface
}

// NewMessageHandler creates a new message handler
func NewMessageHandler(messageService MessageServiceInterface) *MessageHandler {
	return &MessageHandler{
		messageService: messageService,
	}
}

// SendText handles sending a text message (POST /api/sessions/:id/messages/text)
func (h *MessageHandler) SendText(c *gin.Context) {
	logger.Info("Send text endpoint called")

	var req models.SendTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid send text request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	msg, err := h.messageService.SendText(c.Request.Context(), middleware.TenantID(c), c.Param("id"), &req)
	if err != nil {
		logger.Error("Failed to send text message",
			zap.String("session_id", c.Param("id")),
			zap.Error(err),
		)
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, msg)
}

// SendMedia handles sending a media message (POST /api/sessions/:id/messages/media)
func (h *MessageHandler) SendMedia(c *gin.Context) {
	logger.Info("Send media endpoint called")

	var req models.SendMediaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid send media request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	msg, err := h.messageService.SendMedia(c.Request.Context(), middleware.TenantID(c), c.Param("id"), &req)
	if err != nil {
		logger.Error("Failed to send media message",
			zap.String("session_id", c.Param("id")),
			zap.String("kind", string(req.Kind)),
			zap.Error(err),
		)
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, msg)
}

// ListMessages handles reading a conversation's history
// (GET /api/sessions/:id/messages?phone=&limit=&offset=)
func (h *MessageHandler) ListMessages(c *gin.Context) {
	logger.Info("List messages endpoint called")

	phone := c.Query("phone")
	if phone == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Query parameter 'phone' is required"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit < 1 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	msgs, err := h.messageService.ListMessages(c.Request.Context(), middleware.TenantID(c), c.Param("id"), phone, limit, offset)
	if err != nil {
		logger.Error("Failed to list messages",
			zap.String("session_id", c.Param("id")),
			zap.Error(err),
		)
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"messages": msgs,
		"limit":    limit,
		"offset":   offset,
	})
}
