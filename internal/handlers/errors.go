package handlers

import (
	"errors"
	"net/http"

	"github.com/fazendassa/crm-fazendas-sa-sub002/internal/providers"
	"github.com/fazendassa/crm-fazendas-sa-sub002/internal/services"

	"github.com/gin-gonic/gin"
)

// respondServiceError maps service and provider errors onto HTTP statuses.
// Gateway unavailability is retryable (502); gateway rejection is not (422).
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrSessionNotFound), errors.Is(err, services.ErrTagNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, services.ErrSessionNotBound):
		c.JSON(http.StatusConflict, gin.H{"error": "Session is not connected"})
	case errors.Is(err, providers.ErrQRNotAvailable):
		c.JSON(http.StatusConflict, gin.H{"error": "QR code is not available"})
	case providers.IsUnavailable(err):
		c.JSON(http.StatusBadGateway, gin.H{"error": "Messaging gateway unavailable"})
	case providers.IsRejected(err):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
