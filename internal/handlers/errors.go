package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"fire-news/internal/logging"
	"fire-news/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// respondError maps the service error taxonomy onto HTTP
func respondError(c *gin.Context, err error, action string) {
	var validation *services.ValidationError
	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": validation.Error(),
		})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Article not found",
		})
	case errors.Is(err, services.ErrScoringUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":     "Scoring service unavailable",
			"retryable": true,
		})
	case errors.Is(err, services.ErrStorage):
		logging.Logger.Error().Err(err).Str("action", action).Msg("storage failure")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":     "Failed to " + action,
			"details":   "storage temporarily unavailable, please retry",
			"retryable": true,
		})
	default:
		logging.Logger.Error().Err(err).Str("action", action).Msg("unexpected error")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to " + action,
		})
	}
}

// articleIDParam parses :id, answering 404 for anything that is not a uuid
func articleIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Article not found"})
		return uuid.Nil, false
	}
	return id, true
}

// pageParams reads limit and page; the services clamp them
func pageParams(c *gin.Context) services.Page {
	limit, _ := strconv.Atoi(c.Query("limit"))
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	return services.Page{Limit: limit, Page: page}
}
