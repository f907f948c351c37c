package handlers

import (
	"io"
	"net/http"

	"github.com/fazendassa/crm-fazendas-sa-sub002/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// maxWebhookBody caps provider callback payloads at 10 MB
const maxWebhookBody = 10 << 20

// WebhookHandler receives raw provider callbacks. It always answers 200:
// gateways treat anything else as a delivery failure and retry forever,
// so problems are logged locally instead of reported back.
type WebhookHandler struct {
	webhookService WebhookServiceInterface
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(webhookService WebhookServiceInterface) *WebhookHandler {
	return &WebhookHandler{
		webhookService: webhookService,
	}
}

// Receive handles one provider callback (POST /webhooks/:provider/:sessionID)
func (h *WebhookHandler) Receive(c *gin.Context) {
	sessionID := c.Param("sessionID")

	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		logger.Warn("Failed to read webhook body",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}

	if _, err := h.webhookService.Ingest(sessionID, raw); err != nil {
		logger.Warn("Webhook ingest failed",
			zap.String("session_id", sessionID),
			zap.String("provider", c.Param("provider")),
			zap.Error(err),
		)
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
