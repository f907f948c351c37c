package handlers

import (
	"net/http"
	"strings"

	"github.com/fazendassa/crm-fazendas-sa-sub002/internal/models"
	"github.com/fazendassa/crm-fazendas-sa-sub002/pkg/logger"
	"github.com/fazendassa/crm-fazendas-sa-sub002/pkg/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// TagHandler handles conversation label requests
type TagHandler struct {
	tagService TagServiceInterface
}

// NewTagHandler creates a new tag handler
func NewTagHandler(tagService TagServiceInterface) *TagHandler {
	return &TagHandler{
		tagService: tagService,
	}
}

// CreateTag handles creating a new tag (POST /api/tags)
func (h *TagHandler) CreateTag(c *gin.Context) {
	logger.Info("Create tag endpoint called")

	var req models.CreateTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid create tag request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	tag, err := h.tagService.Create(middleware.TenantID(c), &req)
	if err != nil {
		logger.Error("Failed to create tag", zap.String("name", req.Name), zap.Error(err))
		if strings.Contains(err.Error(), "UNIQUE") {
			c.JSON(http.StatusConflict, gin.H{"error": "Tag name already exists"})
			return
		}
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, tag)
}

// ListTags handles listing the tenant's tags (GET /api/tags)
func (h *TagHandler) ListTags(c *gin.Context) {
	logger.Info("List tags endpoint called")

	tags, err := h.tagService.List(middleware.TenantID(c))
	if err != nil {
		logger.Error("Failed to list tags", zap.Error(err))
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tags": tags})
}

// DeleteTag handles removing a tag (DELETE /api/tags/:id)
func (h *TagHandler) DeleteTag(c *gin.Context) {
	logger.Info("Delete tag endpoint called")

	if err := h.tagService.Delete(middleware.TenantID(c), c.Param("id")); err != nil {
		logger.Error("Failed to delete tag", zap.String("tag_id", c.Param("id")), zap.Error(err))
		respondServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// AttachTag handles labeling a conversation (POST /api/conversations/tags)
func (h *TagHandler) AttachTag(c *gin.Context) {
	logger.Info("Attach tag endpoint called")

	var req models.TagAttachmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid attach tag request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	if err := h.tagService.Attach(middleware.TenantID(c), &req); err != nil {
		logger.Error("Failed to attach tag",
			zap.String("tag_id", req.TagID),
			zap.String("session_id", req.SessionID),
			zap.Error(err),
		)
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "attached"})
}

// DetachTag handles removing a label from a conversation (DELETE /api/conversations/tags)
func (h *TagHandler) DetachTag(c *gin.Context) {
	logger.Info("Detach tag endpoint called")

	var req models.TagAttachmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid detach tag request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	if err := h.tagService.Detach(middleware.TenantID(c), &req); err != nil {
		logger.Error("Failed to detach tag",
			zap.String("tag_id", req.TagID),
			zap.String("session_id", req.SessionID),
			zap.Error(err),
		)
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "detached"})
}
