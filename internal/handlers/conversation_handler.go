package handlers

import (
	"net/http"

	"github.com/fazendassa/crm-fazendas-sa-sub002/internal/models"
	"github.com/fazendassa/crm-fazendas-sa-sub002/pkg/logger"
	"github.com/fazendassa/crm-fazendas-sa-sub002/pkg/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ConversationHandler handles conversation list and read-state requests
type ConversationHandler struct {
	conversationService ConversationServiceInterface
}

// NewConversationHandler creates a new conversation handler
func NewConversationHandler(conversationService ConversationServiceInterface) *ConversationHandler {
	return &ConversationHandler{
		conversationService: conversationService,
	}
}

// ListConversations handles listing a session's conversations
// (GET /api/sessions/:id/conversations)
func (h *ConversationHandler) ListConversations(c *gin.Context) {
	logger.Info("List conversations endpoint called")

	conversations, err := h.conversationService.List(middleware.TenantID(c), c.Param("id"))
	if err != nil {
		logger.Error("Failed to list conversations",
			zap.String("session_id", c.Param("id")),
			zap.Error(err),
		)
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"conversations": conversations})
}

// MarkRead handles marking a conversation read (POST /api/sessions/:id/read)
func (h *ConversationHandler) MarkRead(c *gin.Context) {
	logger.Info("Mark conversation read endpoint called")

	var req models.MarkReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid mark read request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	affected, err := h.conversationService.MarkRead(middleware.TenantID(c), c.Param("id"), req.Phone)
	if err != nil {
		logger.Error("Failed to mark conversation read",
			zap.String("session_id", c.Param("id")),
			zap.Error(err),
		)
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"marked": affected})
}
