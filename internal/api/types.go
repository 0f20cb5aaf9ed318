package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pwoszkowski/macrospy/internal/composer"
	"github.com/pwoszkowski/macrospy/internal/service"
)

// respondError maps service/composer error kinds to HTTP statuses. Validation
// failures are the caller's fault, business-rule rejections are conflicts,
// provider trouble is a bad gateway, and anything else is an internal error.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": "validation"})
	case errors.Is(err, service.ErrFavoriteLimit):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "kind": "limit"})
	case errors.Is(err, composer.ErrNoCandidate),
		errors.Is(err, composer.ErrInvalidState),
		errors.Is(err, composer.ErrUnsavedCandidate):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "kind": "state"})
	case errors.Is(err, composer.ErrSessionClosed):
		c.JSON(http.StatusGone, gin.H{"error": err.Error(), "kind": "state"})
	case errors.Is(err, service.ErrMalformedAIResponse):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "kind": "ai_response_format"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "kind": "internal"})
	}
}
