package handlers

import (
	"net/http"

	"github.com/fazendassa/crm-fazendas-sa-sub002/internal/models"
	"github.com/fazendassa/crm-fazendas-sa-sub002/pkg/logger"
	"github.com/fazendassa/crm-fazendas-sa-sub002/pkg/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SessionHandler handles session lifecycle requests
type SessionHandler struct {
	sessionService SessionServiceInterface
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessionService SessionServiceInterface) *SessionHandler {
	return &SessionHandler{
		sessionService: sessionService,
	}
}

// CreateSession handles registering a new gateway session (POST /api/sessions)
func (h *SessionHandler) CreateSession(c *gin.Context) {
	logger.Info("Create session endpoint called")

	var req models.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid create session request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	if !models.ValidProviderKind(req.Provider) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown provider"})
		return
	}

	session, err := h.sessionService.Create(middleware.TenantID(c), &req)
	if err != nil {
		logger.Error("Failed to create session",
			zap.String("name", req.Name),
			zap.String("provider", string(req.Provider)),
			zap.Error(err),
		)
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, session)
}

// ListSessions handles listing the tenant's sessions (GET /api/sessions)
func (h *SessionHandler) ListSessions(c *gin.Context) {
	logger.Info("List sessions endpoint called")

	sessions, err := h.sessionService.List(middleware.TenantID(c))
	if err != nil {
		logger.Error("Failed to list sessions", zap.Error(err))
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

// ListActiveSessions handles listing connected sessions (GET /api/sessions/active)
func (h *SessionHandler) ListActiveSessions(c *gin.Context) {
	logger.Info("List active sessions endpoint called")

	sessions, err := h.sessionService.ListActive(middleware.TenantID(c))
	if err != nil {
		logger.Error("Failed to list active sessions", zap.Error(err))
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

// GetSession handles retrieving a session by ID (GET /api/sessions/:id)
func (h *SessionHandler) GetSession(c *gin.Context) {
	logger.Info("Get session endpoint called")

	session, err := h.sessionService.Get(middleware.TenantID(c), c.Param("id"))
	if err != nil {
		logger.Error("Failed to get session", zap.String("session_id", c.Param("id")), zap.Error(err))
		respondServiceError(c, err)
		return
	}
	if session == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}

	c.JSON(http.StatusOK, session)
}

// DeleteSession handles tearing a session down (DELETE /api/sessions/:id)
func (h *SessionHandler) DeleteSession(c *gin.Context) {
	logger.Info("Delete session endpoint called")

	if err := h.sessionService.Delete(middleware.TenantID(c), c.Param("id")); err != nil {
		logger.Error("Failed to delete session", zap.String("session_id", c.Param("id")), zap.Error(err))
		respondServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GetQRCode handles serving the pairing QR payload (GET /api/sessions/:id/qr)
func (h *SessionHandler) GetQRCode(c *gin.Context) {
	logger.Info("Get session QR endpoint called")

	data, err := h.sessionService.QRCode(c.Request.Context(), middleware.TenantID(c), c.Param("id"))
	if err != nil {
		logger.Warn("Failed to get session QR", zap.String("session_id", c.Param("id")), zap.Error(err))
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"qr_code": data})
}

// ReconnectSession handles restarting a dropped session (POST /api/sessions/:id/reconnect)
func (h *SessionHandler) ReconnectSession(c *gin.Context) {
	logger.Info("Reconnect session endpoint called")

	session, err := h.sessionService.Reconnect(middleware.TenantID(c), c.Param("id"))
	if err != nil {
		logger.Error("Failed to reconnect session", zap.String("session_id", c.Param("id")), zap.Error(err))
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}
