package handlers

import (
	"io"

	"github.com/fazendassa/crm-fazendas-sa-sub002/pkg/logger"
	"github.com/fazendassa/crm-fazendas-sa-sub002/pkg/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// EventsHandler streams realtime notifications to clients over SSE
type EventsHandler struct {
	hub EventHubInterface
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(hub EventHubInterface) *EventsHandler {
	return &EventsHandler{
		hub: hub,
	}
}

// Stream handles the SSE subscription (GET /api/events). The connection
// stays open until the client disconnects; missed events are not
// replayed, clients re-read state after reconnecting.
func (h *EventsHandler) Stream(c *gin.Context) {
	tenantID := middleware.TenantID(c)
	logger.Info("Events stream opened", zap.String("tenant_id", tenantID))

	ch := h.hub.Subscribe(tenantID)
	defer h.hub.Unsubscribe(tenantID, ch)

	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	clientGone := c.Request.Context().Done()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-clientGone:
			return false
		case event, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent(event.Type, event)
			return true
		}
	})

	logger.Info("Events stream closed", zap.String("tenant_id", tenantID))
}
