package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/returnguard/internal/logger"
	"github.com/imrishuroy/returnguard/internal/orders"
	"github.com/imrishuroy/returnguard/internal/service"
	"github.com/imrishuroy/returnguard/internal/users"
)

// respondError maps domain errors to the JSON error codes clients see.
// Anything unrecognised is logged and reported as a 500.
func respondError(c *gin.Context, log logger.Logger, err error) {
	switch {
	case errors.Is(err, orders.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "order_not_found"})
	case errors.Is(err, service.ErrNotAnalyzed):
		c.JSON(http.StatusConflict, gin.H{"error": "order_not_analyzed"})
	case errors.Is(err, service.ErrAlreadyReturned):
		c.JSON(http.StatusConflict, gin.H{"error": "return_already_requested"})
	case errors.Is(err, users.ErrUserExists):
		c.JSON(http.StatusConflict, gin.H{"error": "user_exists"})
	case errors.Is(err, users.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_credentials"})
	default:
		log.WithError(err).Error("request failed", map[string]interface{}{
			"method": c.Request.Method,
			"path":   c.FullPath(),
		})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}
