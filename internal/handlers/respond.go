package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"wholesale-catalog-service/internal/repository"
	"wholesale-catalog-service/internal/services"
)

// writeError maps service and repository errors to HTTP responses
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, repository.ErrRunConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "a sync run is already active for this sync type"})
	case errors.Is(err, repository.ErrTerminalState):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case services.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
